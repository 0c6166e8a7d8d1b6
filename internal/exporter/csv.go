// Package exporter serializes filtered attendance rows back to CSV with the
// extended column set, so an export re-imports cleanly through the parser.
package exporter

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"attendash/internal/errors"
	"attendash/pkg/contracts/domain"
)

// exportColumns is the output schema. It is a superset of the required import
// columns: the derived ISO fields ride along for spreadsheet users.
var exportColumns = []string{
	"Week",
	"IsoWeek",
	"IsoYear",
	"YearWeek",
	"Date",
	"Year",
	"Month",
	"Site",
	"Service",
	"Attendance",
	"Kids Checked-in",
}

// Header returns a copy of the export column names in order.
func Header() []string {
	out := make([]string, len(exportColumns))
	copy(out, exportColumns)
	return out
}

// Export writes the rows as CSV. encoding/csv handles quoting, so commas and
// quotes inside site or service names survive a round trip.
func Export(w io.Writer, rows []domain.AttendanceRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportColumns); err != nil {
		return errors.NewStorageError("failed to write CSV header", err)
	}
	for _, rec := range rows {
		if err := cw.Write(recordToRow(rec)); err != nil {
			return errors.NewStorageError("failed to write CSV row", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewStorageError("failed to flush CSV output", err)
	}
	return nil
}

// ExportFile writes the rows to a file, creating or truncating it.
func ExportFile(path string, rows []domain.AttendanceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create export file", err)
	}
	defer f.Close()

	if err := Export(f, rows); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errors.NewStorageError("failed to close export file", err)
	}
	return nil
}

func recordToRow(rec domain.AttendanceRecord) []string {
	return []string{
		strconv.Itoa(rec.Week),
		strconv.Itoa(rec.ISOWeek),
		rec.ISOYear,
		rec.YearWeek,
		rec.DateKey(),
		rec.Year,
		rec.Month,
		rec.Site,
		rec.Service,
		strconv.Itoa(rec.Attendance),
		strconv.Itoa(rec.KidsCheckedIn),
	}
}
