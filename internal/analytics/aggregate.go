package analytics

import (
	"sort"
	"strconv"
	"unicode"

	"attendash/internal/dataprocessing"
	"attendash/pkg/contracts/domain"
)

// Dimension names a grouping axis for AggregateByDimension.
type Dimension string

const (
	DimensionService Dimension = "service"
	DimensionSite    Dimension = "site"
	DimensionYear    Dimension = "year"
)

// AggregateByDate sums the filtered rows per distinct date, ascending.
func AggregateByDate(rows []domain.AttendanceRecord) []domain.DateAggregate {
	byDate := make(map[string]*domain.DateAggregate)
	var keys []string
	for _, rec := range rows {
		key := rec.DateKey()
		agg, ok := byDate[key]
		if !ok {
			agg = &domain.DateAggregate{
				Date:    rec.Date,
				ISOWeek: rec.ISOWeek,
				ISOYear: rec.ISOYear,
			}
			byDate[key] = agg
			keys = append(keys, key)
		}
		agg.AttendanceSum += rec.Attendance
		agg.KidsSum += rec.KidsCheckedIn
	}

	// DateKey is YYYY-MM-DD, so lexical order is chronological order.
	sort.Strings(keys)

	out := make([]domain.DateAggregate, 0, len(keys))
	for _, key := range keys {
		out = append(out, *byDate[key])
	}
	return out
}

// AggregateMonthly sums the filtered rows per (calendar month, year). Months
// are reported January through December regardless of which year contributed
// them; months with no data are omitted.
func AggregateMonthly(rows []domain.AttendanceRecord) []domain.MonthAggregate {
	byMonth := make(map[int]map[string]domain.MonthTotals)
	for _, rec := range rows {
		idx, _ := monthOf(rec)
		if byMonth[idx] == nil {
			byMonth[idx] = make(map[string]domain.MonthTotals)
		}
		totals := byMonth[idx][rec.Year]
		totals.AttendanceSum += rec.Attendance
		totals.KidsSum += rec.KidsCheckedIn
		byMonth[idx][rec.Year] = totals
	}

	out := make([]domain.MonthAggregate, 0, len(byMonth))
	for idx := 1; idx <= 12; idx++ {
		years, ok := byMonth[idx]
		if !ok {
			continue
		}
		out = append(out, domain.MonthAggregate{
			Month:      dataprocessing.MonthName(idx),
			MonthIndex: idx,
			Years:      years,
		})
	}
	return out
}

// AggregateMonthlySeries sums the filtered rows per (year, month) and returns
// them chronologically, so December of one year precedes January of the next.
func AggregateMonthlySeries(rows []domain.AttendanceRecord) []domain.MonthSeriesPoint {
	type cell struct {
		year string
		idx  int
	}
	byCell := make(map[cell]domain.MonthTotals)
	for _, rec := range rows {
		idx, _ := monthOf(rec)
		c := cell{year: rec.Year, idx: idx}
		totals := byCell[c]
		totals.AttendanceSum += rec.Attendance
		totals.KidsSum += rec.KidsCheckedIn
		byCell[c] = totals
	}

	cells := make([]cell, 0, len(byCell))
	for c := range byCell {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].year != cells[j].year {
			return cells[i].year < cells[j].year
		}
		return cells[i].idx < cells[j].idx
	})

	out := make([]domain.MonthSeriesPoint, 0, len(cells))
	for _, c := range cells {
		out = append(out, domain.MonthSeriesPoint{
			Year:        c.year,
			Month:       dataprocessing.MonthName(c.idx),
			MonthIndex:  c.idx,
			MonthTotals: byCell[c],
		})
	}
	return out
}

// AggregateByDimension sums the filtered rows per label of the chosen
// dimension. Labels are ordered naturally, so "9am" sorts before "11am".
func AggregateByDimension(rows []domain.AttendanceRecord, dim Dimension) []domain.DimensionAggregate {
	label := func(rec domain.AttendanceRecord) string {
		switch dim {
		case DimensionSite:
			return rec.Site
		case DimensionYear:
			return rec.Year
		default:
			return rec.Service
		}
	}

	byLabel := make(map[string]domain.MonthTotals)
	for _, rec := range rows {
		totals := byLabel[label(rec)]
		totals.AttendanceSum += rec.Attendance
		totals.KidsSum += rec.KidsCheckedIn
		byLabel[label(rec)] = totals
	}

	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return naturalLess(labels[i], labels[j]) })

	out := make([]domain.DimensionAggregate, 0, len(labels))
	for _, l := range labels {
		out = append(out, domain.DimensionAggregate{
			Label:         l,
			AttendanceSum: byLabel[l].AttendanceSum,
			KidsSum:       byLabel[l].KidsSum,
		})
	}
	return out
}

// monthOf resolves a record's month index and canonical name, preferring the
// stored month name and falling back to the date when the name is unknown.
func monthOf(rec domain.AttendanceRecord) (int, string) {
	if idx := dataprocessing.MonthIndex(rec.Month); idx > 0 {
		return idx, dataprocessing.MonthName(idx)
	}
	idx := int(rec.Date.Month())
	return idx, dataprocessing.MonthName(idx)
}

// naturalLess compares strings chunk-wise, treating digit runs as numbers.
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		aChunk, aNum, aRest := nextChunk(a)
		bChunk, bNum, bRest := nextChunk(b)

		if aNum >= 0 && bNum >= 0 {
			if aNum != bNum {
				return aNum < bNum
			}
		} else if aChunk != bChunk {
			return aChunk < bChunk
		}
		a, b = aRest, bRest
	}
	return a == "" && b != ""
}

// nextChunk splits off the leading digit run or non-digit run. num is -1 for
// non-digit chunks.
func nextChunk(s string) (chunk string, num int, rest string) {
	runes := []rune(s)
	isDigit := unicode.IsDigit(runes[0])
	i := 1
	for i < len(runes) && unicode.IsDigit(runes[i]) == isDigit {
		i++
	}
	chunk, rest = string(runes[:i]), string(runes[i:])
	num = -1
	if isDigit {
		if n, err := strconv.Atoi(chunk); err == nil {
			num = n
		}
	}
	return chunk, num, rest
}
