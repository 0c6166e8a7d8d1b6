// Package analytics filters the committed dataset and computes the aggregate
// views the dashboard charts consume. Filtered row sets are memoized in a
// single-entry cache keyed by a fingerprint of the dataset revision and the
// filter state.
package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Selection is a tagged variant over one filter dimension: either every value
// passes, or only the listed values do. The zero value selects everything.
type Selection struct {
	All    bool
	Values []string
}

// SelectAll returns the pass-everything selection.
func SelectAll() Selection {
	return Selection{All: true}
}

// SelectValues builds an explicit selection. Values are trimmed, blanks
// dropped and duplicates removed while preserving first-seen order. An empty
// result selects nothing, not everything.
func SelectValues(values ...string) Selection {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return Selection{Values: out}
}

// Matches reports whether the value passes this selection.
func (s Selection) Matches(v string) bool {
	if s.All {
		return true
	}
	for _, val := range s.Values {
		if val == v {
			return true
		}
	}
	return false
}

// fingerprint renders the selection deterministically: explicit values are
// sorted so two selections with the same set produce the same key regardless
// of construction order. Values are quoted so a value containing the
// separator cannot collide with two separate values.
func (s Selection) fingerprint() string {
	if s.All {
		return "*"
	}
	sorted := make([]string, len(s.Values))
	for i, v := range s.Values {
		sorted[i] = strconv.Quote(v)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// FilterState captures every user-controlled filter input.
type FilterState struct {
	Years    Selection
	Sites    Selection
	Services Selection

	// IncludeZero keeps rows whose attendance count is zero. Off by default
	// so cancelled services do not drag averages down.
	IncludeZero bool

	// Search is a case-insensitive substring match over site, service,
	// year and month.
	Search string
}

// Fingerprint derives the cache key for this filter state against a specific
// dataset revision. Any change to the dataset or to a filter input yields a
// different key.
func (f FilterState) Fingerprint(revision uint64) string {
	return fmt.Sprintf("rev=%d|y=%s|st=%s|sv=%s|zero=%t|q=%s",
		revision,
		f.Years.fingerprint(),
		f.Sites.fingerprint(),
		f.Services.fingerprint(),
		f.IncludeZero,
		strings.ToLower(strings.TrimSpace(f.Search)))
}

// matches applies every filter input to one record.
func (f FilterState) matches(year, month, site, service string, attendance int) bool {
	if !f.Years.Matches(year) || !f.Sites.Matches(site) || !f.Services.Matches(service) {
		return false
	}
	if !f.IncludeZero && attendance == 0 {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(site), q) &&
			!strings.Contains(strings.ToLower(service), q) &&
			!strings.Contains(strings.ToLower(year), q) &&
			!strings.Contains(strings.ToLower(month), q) {
			return false
		}
	}
	return true
}
