package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
)

const timeLayout = "2006-01-02 15:04"

// ReportStore persists activity reports.
type ReportStore interface {
	SaveActivityReport(ctx context.Context, report models.ActivityReport) error
}

// Service turns tracked activity into periodic summaries.
type Service struct {
	tracker *Tracker
	store   ReportStore
	loc     *time.Location
	logger  *zap.Logger
}

// NewService wires a new reporting service instance. store may be nil.
func NewService(tracker *Tracker, store ReportStore, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{tracker: tracker, store: store, loc: loc, logger: logger}
}

// GenerateActivityReport closes the current window, stores it when a store is
// configured and returns the summary text. A storage failure is logged, not returned.
func (s *Service) GenerateActivityReport(ctx context.Context) (models.ActivityReport, string) {
	report := s.tracker.Flush()

	s.logger.Info("activity report",
		zap.Time("period_start", report.PeriodStart),
		zap.Time("period_end", report.PeriodEnd),
		zap.Any("events", report.Events),
		zap.Any("decisions", report.Decisions),
		zap.Int64("text_sends", report.TextSends),
		zap.Int64("template_sends", report.TemplateSends),
		zap.Int64("send_failures", report.SendFailures),
		zap.Int64("fallbacks", report.Fallbacks),
		zap.Int64("failed_statuses", report.FailedStatuses))

	if s.store != nil {
		if err := s.store.SaveActivityReport(ctx, report); err != nil {
			s.logger.Error("failed to save activity report", zap.Error(err))
		}
	}

	return report, s.Summarize(report)
}

// Summarize renders a report as a WhatsApp-friendly message.
func (s *Service) Summarize(report models.ActivityReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Resumen EUROCAM* (%s - %s)\n",
		report.PeriodStart.In(s.loc).Format(timeLayout),
		report.PeriodEnd.In(s.loc).Format(timeLayout))

	fmt.Fprintf(&b, "Mensajes recibidos: %d\n", report.Events[models.CategoryMessage])
	fmt.Fprintf(&b, "Estados recibidos: %d (fallidos: %d)\n", report.Events[models.CategoryStatus], report.FailedStatuses)
	fmt.Fprintf(&b, "Respuestas: ventas %d, administración %d, saludo %d\n",
		report.Decisions[models.ReplyVentasInfo],
		report.Decisions[models.ReplyAdminInfo],
		report.Decisions[models.ReplyGenericGreeting])
	fmt.Fprintf(&b, "Envíos: %d textos, %d plantillas, %d fallidos, %d fallbacks",
		report.TextSends, report.TemplateSends, report.SendFailures, report.Fallbacks)

	return b.String()
}
