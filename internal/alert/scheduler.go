package alert

import (
	"context"
	"time"

	"farmops/pkg/clients/webhook"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the low stock scan on a cron schedule and pushes
// results to a webhook endpoint.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	notifier webhook.Notifier
	schedule string
	logger   *zap.Logger
}

func NewScheduler(service *Service, notifier webhook.Notifier, schedule string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:     cron.New(),
		service:  service,
		notifier: notifier,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the scan job and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runScan); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("low stock scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops the cron runner.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("low stock scheduler stopped")
}

func (s *Scheduler) runScan() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	alerts, err := s.service.ScanLowStock()
	if err != nil {
		s.logger.Error("low stock scan failed", zap.Error(err))
		return
	}

	if len(alerts) == 0 {
		s.logger.Info("low stock scan finished", zap.Int("alerts", 0))
		return
	}

	for _, alert := range alerts {
		s.logger.Warn("product below minimum stock",
			zap.String("product_id", alert.ProductID.String()),
			zap.String("product_name", alert.ProductName),
			zap.Float64("balance", alert.Balance),
			zap.Float64("min_stock", alert.MinStock))
	}

	if s.notifier == nil {
		return
	}

	// Best effort delivery, failed webhooks are logged and dropped.
	if err := s.notifier.Notify(ctx, map[string]any{
		"type":   "low_stock",
		"alerts": alerts,
	}); err != nil {
		s.logger.Error("failed to deliver low stock webhook", zap.Error(err))
		return
	}

	s.logger.Info("low stock scan finished", zap.Int("alerts", len(alerts)))
}
