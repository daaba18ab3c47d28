package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
)

const reportTimeout = 2 * time.Minute

// Reporter produces the periodic activity report.
type Reporter interface {
	GenerateActivityReport(ctx context.Context) (models.ActivityReport, string)
}

// Notifier delivers the summary to an operator.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	notifier Notifier
	cfg      config.ReportingConfig
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, reporter Reporter, notifier Notifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Location())),
		reporter: reporter,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start registers the activity report job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.RunActivityReport); err != nil {
		return fmt.Errorf("schedule activity report %q: %w", s.cfg.CronSchedule, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("schedule", s.cfg.CronSchedule),
		zap.String("timezone", s.cfg.Timezone))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// RunActivityReport flushes the activity counters and forwards the summary when a
// recipient is configured.
func (s *Scheduler) RunActivityReport() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	_, summary := s.reporter.GenerateActivityReport(ctx)

	if s.cfg.Recipient == "" || s.notifier == nil {
		s.logger.Debug("no report recipient configured")
		return
	}

	req := models.OutboundMessageRequest{To: s.cfg.Recipient, Message: summary}
	if err := s.notifier.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send activity report", zap.Error(err), zap.String("to", s.cfg.Recipient))
		return
	}
	s.logger.Info("activity report sent", zap.String("to", s.cfg.Recipient))
}
