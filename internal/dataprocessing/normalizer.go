package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"attendash/internal/errors"
	"attendash/internal/security"
	"attendash/pkg/contracts/domain"
)

// monthNames are the canonical English month names, indexed by month-1.
var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the canonical name for a 1-based month index.
func MonthName(index int) string {
	if index < 1 || index > 12 {
		return ""
	}
	return monthNames[index-1]
}

// MonthIndex resolves a month name case-insensitively to its 1-based index,
// or 0 when the name is not one of the twelve canonical names.
func MonthIndex(name string) int {
	trimmed := strings.TrimSpace(name)
	for i, m := range monthNames {
		if strings.EqualFold(trimmed, m) {
			return i + 1
		}
	}
	return 0
}

// NormalizeRow converts one raw header-to-cell map into a typed record.
// Rules are applied in a fixed order and the first violation aborts the row.
func NormalizeRow(cells map[string]string) (domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord

	week, err := parseRoundedInt(cells[ColumnWeek], ColumnWeek)
	if err != nil {
		return rec, err
	}

	date, err := parseStrictDate(cells[ColumnDate])
	if err != nil {
		return rec, err
	}

	site, err := security.SanitizeTextValue(cells[ColumnSite], ColumnSite)
	if err != nil {
		return rec, err
	}
	if site == "" {
		return rec, errors.NewValidationError("Site is required")
	}

	service, err := security.SanitizeTextValue(cells[ColumnService], ColumnService)
	if err != nil {
		return rec, err
	}
	if service == "" {
		return rec, errors.NewValidationError("Service is required")
	}

	attendance, err := parseRoundedInt(cells[ColumnAttendance], ColumnAttendance)
	if err != nil {
		return rec, err
	}
	if attendance < 0 {
		return rec, errors.NewValidationError("Attendance cannot be negative")
	}

	kids, err := parseRoundedInt(cells[ColumnKids], ColumnKids)
	if err != nil {
		return rec, err
	}
	if kids < 0 {
		return rec, errors.NewValidationError("Kids Checked-in cannot be negative")
	}

	year, err := security.SanitizeTextValue(cells[ColumnYear], ColumnYear)
	if err != nil {
		return rec, err
	}
	if year == "" {
		year = strconv.Itoa(date.Year())
	}

	// An unrecognized month is not an error; the parsed date is authoritative.
	month := MonthName(MonthIndex(cells[ColumnMonth]))
	if month == "" {
		month = MonthName(int(date.Month()))
	}

	rec = domain.AttendanceRecord{
		Week:          week,
		Date:          date,
		Year:          year,
		Month:         month,
		Site:          site,
		Service:       service,
		Attendance:    attendance,
		KidsCheckedIn: kids,
	}
	return Hydrate(rec), nil
}

// Hydrate recomputes the derived ISO week fields from the record's date.
// It is idempotent: re-hydrating an already hydrated record yields identical
// ISOWeek, ISOYear and YearWeek values.
func Hydrate(rec domain.AttendanceRecord) domain.AttendanceRecord {
	isoYear, isoWeek := rec.Date.ISOWeek()
	rec.ISOWeek = isoWeek
	rec.ISOYear = strconv.Itoa(isoYear)
	rec.YearWeek = fmt.Sprintf("%s-%02d", rec.ISOYear, isoWeek)
	return rec
}

// parseRoundedInt parses a cell as a finite number and rounds it to the
// nearest integer.
func parseRoundedInt(value, fieldName string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.NewValidationError(fmt.Sprintf("Invalid %s value", fieldName))
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.NewValidationError(fmt.Sprintf("Invalid %s value", fieldName))
	}
	return int(math.Round(f)), nil
}

// parseStrictDate parses a YYYY-MM-DD local date. All three components must
// be integral and reconstructing the date must reproduce them, which rejects
// overflow dates such as 2024-02-30.
func parseStrictDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	parts := strings.Split(trimmed, "-")
	if trimmed == "" || len(parts) != 3 {
		return time.Time{}, errors.NewValidationError("Invalid Date value")
	}

	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, errors.NewValidationError("Invalid Date value")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, errors.NewValidationError("Invalid Date value")
	}
	return date, nil
}
