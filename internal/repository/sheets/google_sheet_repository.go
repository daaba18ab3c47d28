package sheets

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/eurocam-webhook/internal/config"
)

var (
	errEmptyRange = errors.New("sheet range must not be empty")

	// "Contactos!A:G" -> sheet "Contactos", columns A..G.
	columnRange = regexp.MustCompile(`^(.+)!([A-Z]+):([A-Z]+)$`)
)

// Repository defines the spreadsheet operations the contact journal relies on.
type Repository interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
	WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
	EnsureHeader(ctx context.Context, sheetRange string, header []interface{}) (bool, error)
}

// GoogleSheetRepository implements Repository on top of the Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository authenticates with a service-account file and targets one spreadsheet.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sheets: credentials path and spreadsheet id are required")
	}

	return newRepository(ctx, cfg.SpreadsheetID, logger,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
}

func newRepository(ctx context.Context, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger.Named("sheets"),
	}, nil
}

// WriteRow appends one row below the last filled row of sheetRange.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	return r.WriteRows(ctx, sheetRange, [][]interface{}{values})
}

// WriteRows appends rows in a single API call.
func (r *GoogleSheetRepository) WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return errEmptyRange
	}
	if len(rows) == 0 {
		return nil
	}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append %d rows into range %s: %w", len(rows), sheetRange, err)
	}

	r.logger.Debug("rows appended", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReadRange fetches the values currently stored in sheetRange.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, errEmptyRange
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

// EnsureHeader writes header as the first row when the sheet has no data yet. It
// reports whether the header was written.
func (r *GoogleSheetRepository) EnsureHeader(ctx context.Context, sheetRange string, header []interface{}) (bool, error) {
	rows, err := r.ReadRange(ctx, firstRow(sheetRange))
	if err != nil {
		return false, err
	}
	if len(rows) > 0 {
		return false, nil
	}

	if err := r.WriteRow(ctx, sheetRange, header); err != nil {
		return false, err
	}
	return true, nil
}

// firstRow narrows a whole-column range to its first row. Other ranges are returned as is.
func firstRow(sheetRange string) string {
	m := columnRange.FindStringSubmatch(sheetRange)
	if m == nil {
		return sheetRange
	}
	return fmt.Sprintf("%s!%s1:%s1", m[1], m[2], m[3])
}
