package reports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"exptrack/internal/core"
	"exptrack/internal/log"
)

var ErrNoTransactions = errors.New("no transactions found for the selected date range")

// Header is the column layout shared by every export target.
var Header = []string{"Date", "Time", "Account Type", "Type", "Amount", "Category", "Description", "Created By", "Email"}

const bom = "\ufeff"

type TransactionSearcher interface {
	Search(ctx context.Context, r core.DateRange) ([]core.Transaction, error)
}

// Exporter writes export rows somewhere and says where.
type Exporter interface {
	Export(ctx context.Context, header []string, rows [][]string) (string, error)
}

// Rows renders transactions in export column order. Times are shown in loc.
func Rows(txs []core.Transaction, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(txs))
	for _, t := range txs {
		date, clock := t.TransactionDate, ""
		if t.CreatedAt != nil {
			created := t.CreatedAt.In(loc)
			date = created.Format(core.DateLayout)
			clock = created.Format("15:04:05")
		}
		creator := t.Username
		if creator == "" {
			creator = "N/A"
		}
		rows = append(rows, []string{
			date,
			clock,
			t.AccountType,
			t.Type.Label(),
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.CategoryName,
			t.Description,
			creator,
			t.UserEmail,
		})
	}
	return rows
}

// WriteCSV writes a UTF-8 BOM followed by CRLF separated records.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// ExportCSV writes txs as a spreadsheet friendly CSV.
func ExportCSV(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		return ErrNoTransactions
	}
	return WriteCSV(w, Header, Rows(txs, time.Local))
}

// ExportFileName is the download name for an export made at now.
func ExportFileName(now time.Time) string {
	return "expense-report-" + now.Format(core.DateLayout) + ".csv"
}

// CSVFile exports into a dated file under Dir.
type CSVFile struct {
	Dir string
	Now func() time.Time
}

func (f CSVFile) Export(_ context.Context, header []string, rows [][]string) (string, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	path := filepath.Join(f.Dir, ExportFileName(now()))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(out, header, rows); err != nil {
		out.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

// Export searches the transactions in r and hands them to exp. It returns
// the export location and the number of transactions written.
func (rp *Reports) Export(ctx context.Context, r core.DateRange, exp Exporter) (string, int, error) {
	if err := r.Validate(); err != nil {
		return "", 0, err
	}
	txs, err := rp.transactions.Search(ctx, r)
	if err != nil {
		return "", 0, fmt.Errorf("search transactions: %w", err)
	}
	if len(txs) == 0 {
		return "", 0, ErrNoTransactions
	}
	where, err := exp.Export(ctx, Header, Rows(txs, time.Local))
	if err != nil {
		return "", 0, err
	}
	rp.logger.InfoContext(ctx, "Transactions exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(txs),
		log.FieldTarget, where)
	return where, len(txs), nil
}
