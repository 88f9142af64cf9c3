// Package report renders the records view and exports it to a file or S3.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// Format selects the records rendering.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
)

var header = []string{"id", "name", "loan_state", "loan_item"}

// ParseFormat accepts "table" and "csv", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table or csv)", s)
	}
}

func row(rec database.IdentityRecord) []string {
	return []string{
		strconv.FormatInt(rec.ID, 10),
		rec.Name,
		string(rec.Loan.State),
		rec.Loan.Item,
	}
}

// Render writes records in the given format.
func Render(w io.Writer, records []database.IdentityRecord, format Format) error {
	switch format {
	case FormatCSV:
		return renderCSV(w, records)
	case FormatTable:
		return renderTable(w, records)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderCSV(w io.Writer, records []database.IdentityRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return fmt.Errorf("write csv row %d: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderTable(w io.Writer, records []database.IdentityRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, rec := range records {
		r := row(rec)
		if r[3] == "" {
			r[3] = "-"
		}
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	fmt.Fprintf(tw, "\n%d identities, %d on loan\n", len(records), countHolding(records))
	return tw.Flush()
}

func countHolding(records []database.IdentityRecord) int {
	n := 0
	for _, rec := range records {
		if rec.Loan.State == database.LoanHolding {
			n++
		}
	}
	return n
}
