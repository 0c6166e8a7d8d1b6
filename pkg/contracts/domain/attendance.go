package domain

import (
	"fmt"
	"time"
)

// AttendanceRecord represents one service gathering on one date at one site.
// This is the canonical entity produced by ingestion; every persisted record
// has passed sanitization and carries the derived ISO week fields.
type AttendanceRecord struct {
	Week          int       `json:"week" validate:"min=0"`
	Date          time.Time `json:"date" validate:"required"`
	Year          string    `json:"year" validate:"required"`
	Month         string    `json:"month" validate:"required"`
	Site          string    `json:"site" validate:"required,max=120"`
	Service       string    `json:"service" validate:"required,max=120"`
	Attendance    int       `json:"attendance" validate:"min=0"`
	KidsCheckedIn int       `json:"kids_checked_in" validate:"min=0"`
	ISOWeek       int       `json:"iso_week"`
	ISOYear       string    `json:"iso_year"`
	YearWeek      string    `json:"year_week"`
}

// DateKey returns the record's date formatted as YYYY-MM-DD.
func (r AttendanceRecord) DateKey() string {
	return r.Date.Format("2006-01-02")
}

// DuplicateKey returns the composite identity used for duplicate detection.
func (r AttendanceRecord) DuplicateKey() string {
	return fmt.Sprintf("%s|%s|%s", r.DateKey(), r.Site, r.Service)
}

// DateAggregate holds summed counts for one distinct date in a filtered set.
type DateAggregate struct {
	Date          time.Time `json:"date"`
	AttendanceSum int       `json:"attendance_sum"`
	KidsSum       int       `json:"kids_sum"`
	ISOWeek       int       `json:"iso_week"`
	ISOYear       string    `json:"iso_year"`
}

// MonthTotals holds summed counts for one (month, year) cell.
type MonthTotals struct {
	AttendanceSum int `json:"attendance_sum"`
	KidsSum       int `json:"kids_sum"`
}

// MonthAggregate holds per-year totals for one calendar month. Entries are
// reported in calendar order (January through December), independent of which
// years are present.
type MonthAggregate struct {
	Month      string                 `json:"month"`
	MonthIndex int                    `json:"month_index"` // 1 = January
	Years      map[string]MonthTotals `json:"years"`
}

// MonthSeriesPoint is one point of the chronological monthly trend, ordered
// by (year, month index) so December 2023 precedes January 2024.
type MonthSeriesPoint struct {
	Year       string `json:"year"`
	Month      string `json:"month"`
	MonthIndex int    `json:"month_index"`
	MonthTotals
}

// DimensionAggregate holds summed counts for one label of a grouping
// dimension (service, site or year).
type DimensionAggregate struct {
	Label         string `json:"label"`
	AttendanceSum int    `json:"attendance_sum"`
	KidsSum       int    `json:"kids_sum"`
}

// AliasGroup describes one set of service spellings collapsed to a canonical
// form during ingestion.
type AliasGroup struct {
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases"`
}

// IngestNotices summarises user-facing outcomes of an ingestion: alias merges
// and duplicate handling. It accompanies the committed dataset.
type IngestNotices struct {
	AliasGroups     []AliasGroup `json:"alias_groups,omitempty"`
	DuplicateGroups int          `json:"duplicate_groups"`
	DuplicateRows   int          `json:"duplicate_rows"`
	ResolutionMode  string       `json:"resolution_mode"`
	RowsIngested    int          `json:"rows_ingested"`
	RowsCommitted   int          `json:"rows_committed"`
}
