package journal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
	repo "github.com/mamadbah2/eurocam-webhook/internal/repository/sheets"
)

var header = []interface{}{"received_at", "sender", "type", "selection", "decision", "outcome", "delivered"}

// ContactJournal appends one spreadsheet row per answered inbound message.
type ContactJournal struct {
	repo     repo.Repository
	rowRange string
	loc      *time.Location
	logger   *zap.Logger
}

// NewContactJournal builds a journal writing into rowRange, e.g. "Contactos!A:G".
func NewContactJournal(repository repo.Repository, rowRange string, loc *time.Location, logger *zap.Logger) *ContactJournal {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ContactJournal{repo: repository, rowRange: rowRange, loc: loc, logger: logger}
}

// EnsureHeader writes the column titles when the sheet is still empty.
func (j *ContactJournal) EnsureHeader(ctx context.Context) error {
	wrote, err := j.repo.EnsureHeader(ctx, j.rowRange, header)
	if err != nil {
		return fmt.Errorf("prepare contacts sheet: %w", err)
	}
	if wrote {
		j.logger.Info("contacts sheet initialized", zap.String("range", j.rowRange))
	}
	return nil
}

// Record stores who wrote, what they picked and how they were answered.
func (j *ContactJournal) Record(ctx context.Context, receivedAt time.Time, report models.ReplyReport) error {
	row := []interface{}{
		receivedAt.In(j.loc).Format("2006-01-02 15:04:05"),
		report.Message.SenderID,
		report.Message.Type,
		report.Selection,
		string(report.Decision),
		string(report.Outcome),
		report.Delivered(),
	}

	if err := j.repo.WriteRow(ctx, j.rowRange, row); err != nil {
		return fmt.Errorf("journal contact %s: %w", report.Message.SenderID, err)
	}
	return nil
}
