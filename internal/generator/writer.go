package generator

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"attendash/internal/dataprocessing"
	"attendash/internal/errors"
	"attendash/pkg/contracts/domain"
)

// fileRow is the on-disk shape of a generated record: the import schema, with
// the date flattened to YYYY-MM-DD so the output re-imports directly.
type fileRow struct {
	Week          int    `json:"Week"`
	Date          string `json:"Date"`
	Year          string `json:"Year"`
	Month         string `json:"Month"`
	Site          string `json:"Site"`
	Service       string `json:"Service"`
	Attendance    int    `json:"Attendance"`
	KidsCheckedIn int    `json:"Kids Checked-in"`
}

func toFileRow(rec domain.AttendanceRecord) fileRow {
	return fileRow{
		Week:          rec.Week,
		Date:          rec.DateKey(),
		Year:          rec.Year,
		Month:         rec.Month,
		Site:          rec.Site,
		Service:       rec.Service,
		Attendance:    rec.Attendance,
		KidsCheckedIn: rec.KidsCheckedIn,
	}
}

// WriteCSV writes the rows in the import schema.
func WriteCSV(w io.Writer, rows []domain.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(dataprocessing.RequiredColumns); err != nil {
		return errors.NewStorageError("failed to write generated CSV header", err)
	}
	for _, rec := range rows {
		fr := toFileRow(rec)
		record := []string{
			strconv.Itoa(fr.Week),
			fr.Date,
			fr.Year,
			fr.Month,
			fr.Site,
			fr.Service,
			strconv.Itoa(fr.Attendance),
			strconv.Itoa(fr.KidsCheckedIn),
		}
		if err := cw.Write(record); err != nil {
			return errors.NewStorageError("failed to write generated CSV row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewStorageError("failed to flush generated CSV", err)
	}
	return nil
}

// WriteJSON writes the rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []domain.AttendanceRecord) error {
	out := make([]fileRow, len(rows))
	for i, rec := range rows {
		out[i] = toFileRow(rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.NewStorageError("failed to encode generated JSON", err)
	}
	return nil
}

// WriteFiles writes both the CSV and JSON renditions next to each other.
func WriteFiles(csvPath, jsonPath string, rows []domain.AttendanceRecord) error {
	cf, err := os.Create(csvPath)
	if err != nil {
		return errors.NewStorageError("failed to create generated CSV file", err)
	}
	defer cf.Close()
	if err := WriteCSV(cf, rows); err != nil {
		return err
	}

	jf, err := os.Create(jsonPath)
	if err != nil {
		return errors.NewStorageError("failed to create generated JSON file", err)
	}
	defer jf.Close()
	return WriteJSON(jf, rows)
}
