// Package google exports report rows to a Google Sheets spreadsheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"exptrack/internal/log"
)

var (
	ErrMissingSpreadsheetID = errors.New("missing spreadsheet id")
	ErrMissingSheetName     = errors.New("missing sheet name")
	ErrMissingCredentials   = errors.New("missing service account credentials")
)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON wins over CredentialsFile.
	CredentialsJSON []byte
	CredentialsFile string
}

func (c Config) credentials() ([]byte, error) {
	if len(c.CredentialsJSON) > 0 {
		return c.CredentialsJSON, nil
	}
	if path := strings.TrimSpace(c.CredentialsFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, ErrMissingCredentials
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		errs = append(errs, ErrMissingSpreadsheetID)
	}
	if strings.TrimSpace(c.SheetName) == "" {
		errs = append(errs, ErrMissingSheetName)
	}
	return errors.Join(errs...)
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// NewExporter creates a Sheets client authenticated with the configured
// service account.
func NewExporter(ctx context.Context, cfg Config, logger *log.Logger) (*Exporter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	creds, err := cfg.credentials()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newExporter(svc, cfg, logger), nil
}

func newExporter(svc *gsheet.Service, cfg Config, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheet:         strings.TrimSpace(cfg.SheetName),
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// Export appends header and rows below the existing content of the sheet.
// Values are entered as if typed so dates and amounts keep their types.
func (e *Exporter) Export(ctx context.Context, header []string, rows [][]string) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	values := make([][]any, 0, len(rows)+1)
	values = append(values, toValues(header))
	for _, r := range rows {
		values = append(values, toValues(r))
	}

	rng := quoteSheet(e.sheet) + "!A1"
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", e.sheet, err)
	}

	updated := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		updated = resp.Updates.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Rows appended to spreadsheet",
		log.FieldTarget, updated,
		log.FieldCount, len(rows))
	return updated, nil
}

func toValues(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// quoteSheet wraps sheet names that A1 notation cannot take bare.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
