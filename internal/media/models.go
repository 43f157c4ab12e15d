package media

import (
	"farmops/internal/common"

	"github.com/google/uuid"
)

// ApplicationAttachment links an uploaded spray-record document or photo to
// its application. The bytes live in object storage; this row carries the
// lookup key and display metadata.
type ApplicationAttachment struct {
	common.BaseModel
	ApplicationID uuid.UUID    `json:"application_id" gorm:"type:uuid;not null;index"`
	FileName      string       `json:"file_name" gorm:"not null;size:256"`
	ObjectKey     string       `json:"object_key" gorm:"not null;size:512"`
	ContentType   string       `json:"content_type" gorm:"size:128"`
	FileSize      int64        `json:"file_size" gorm:"not null"`
	Properties    common.JSONB `json:"properties,omitempty" gorm:"type:jsonb;default:'{}'"`
	UploadedBy    uuid.UUID    `json:"uploaded_by" gorm:"type:uuid;not null"`
}

func (ApplicationAttachment) TableName() string {
	return "application_attachments"
}
