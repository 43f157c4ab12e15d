package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"farmops/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	store  *ObjectClient
	logger *zap.Logger
}

func NewService(db *gorm.DB, store *ObjectClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, store: store, logger: logger}
}

// Upload stores the file in the object store and records the attachment
// row. Object storage and the database are two systems with no shared
// transaction, so a failed row insert triggers a best-effort compensating
// delete of the uploaded object.
func (s *Service) Upload(ctx context.Context, userID, applicationID uuid.UUID, fileName, contentType string, size int64, body io.Reader) (*ApplicationAttachment, error) {
	if err := s.checkApplicationOwner(userID, applicationID); err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("applications/%s/%s%s",
		applicationID, uuid.New(), path.Ext(fileName))

	if err := s.store.PutObject(ctx, objectKey, contentType, body); err != nil {
		return nil, err
	}

	attachment := ApplicationAttachment{
		ApplicationID: applicationID,
		FileName:      fileName,
		ObjectKey:     objectKey,
		ContentType:   contentType,
		FileSize:      size,
		UploadedBy:    userID,
	}
	if err := s.db.Create(&attachment).Error; err != nil {
		if delErr := s.store.DeleteObject(ctx, objectKey); delErr != nil {
			s.logger.Warn("orphan object left after failed attachment insert",
				zap.String("object_key", objectKey), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}

	return &attachment, nil
}

func (s *Service) List(userID, applicationID uuid.UUID) ([]ApplicationAttachment, error) {
	if err := s.checkApplicationOwner(userID, applicationID); err != nil {
		return nil, err
	}

	var attachments []ApplicationAttachment
	if err := s.db.Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&attachments).Error; err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// Download streams the attachment bytes from the object store.
func (s *Service) Download(ctx context.Context, userID, applicationID, attachmentID uuid.UUID) (io.ReadCloser, *ApplicationAttachment, error) {
	attachment, err := s.get(userID, applicationID, attachmentID)
	if err != nil {
		return nil, nil, err
	}

	body, _, _, err := s.store.GetObject(ctx, attachment.ObjectKey)
	if err != nil {
		return nil, nil, err
	}
	return body, attachment, nil
}

// Delete removes the attachment row and then the stored object; a failed
// object delete only logs.
func (s *Service) Delete(ctx context.Context, userID, applicationID, attachmentID uuid.UUID) error {
	attachment, err := s.get(userID, applicationID, attachmentID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&ApplicationAttachment{}, "id = ?", attachment.ID).Error; err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	if err := s.store.DeleteObject(ctx, attachment.ObjectKey); err != nil {
		s.logger.Warn("orphan object left after attachment delete",
			zap.String("object_key", attachment.ObjectKey), zap.Error(err))
	}
	return nil
}

func (s *Service) get(userID, applicationID, attachmentID uuid.UUID) (*ApplicationAttachment, error) {
	if err := s.checkApplicationOwner(userID, applicationID); err != nil {
		return nil, err
	}

	var attachment ApplicationAttachment
	if err := s.db.Where("id = ? AND application_id = ?", attachmentID, applicationID).
		First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &common.NotFoundError{Resource: "attachment", ID: attachmentID.String()}
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &attachment, nil
}

func (s *Service) checkApplicationOwner(userID, applicationID uuid.UUID) error {
	var count int64
	if err := s.db.Table("applications").
		Where("id = ? AND user_id = ?", applicationID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check application ownership: %w", err)
	}
	if count == 0 {
		return &common.NotFoundError{Resource: "application", ID: applicationID.String()}
	}
	return nil
}
