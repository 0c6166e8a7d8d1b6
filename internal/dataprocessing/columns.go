package dataprocessing

// Column names of the attendance upload schema. Header matching is exact and
// case-sensitive after trimming.
const (
	ColumnWeek       = "Week"
	ColumnDate       = "Date"
	ColumnYear       = "Year"
	ColumnMonth      = "Month"
	ColumnSite       = "Site"
	ColumnService    = "Service"
	ColumnAttendance = "Attendance"
	ColumnKids       = "Kids Checked-in"
)

// RequiredColumns is the set of headers an upload must carry, in the order
// they are reported when missing.
var RequiredColumns = []string{
	ColumnWeek,
	ColumnDate,
	ColumnYear,
	ColumnMonth,
	ColumnSite,
	ColumnService,
	ColumnAttendance,
	ColumnKids,
}
