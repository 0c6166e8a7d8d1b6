package analytics

import (
	"log/slog"
	"sync"

	"attendash/pkg/contracts/domain"
)

// CacheObserver receives cache outcome notifications, typically backed by
// Prometheus counters. A nil observer disables reporting.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// Engine filters attendance records and serves aggregate views. It keeps a
// single cached filter result: dashboards re-request the same filter state
// many times per interaction, and any change of state or data simply evicts
// the previous entry.
type Engine struct {
	mu       sync.Mutex
	logger   *slog.Logger
	observer CacheObserver

	cacheKey  string
	cacheRows []domain.AttendanceRecord
}

// NewEngine creates an engine. Logger and observer may be nil.
func NewEngine(logger *slog.Logger, observer CacheObserver) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:   logger.With(slog.String("component", "analytics_engine")),
		observer: observer,
	}
}

// FilteredRows returns the records passing the filter, in dataset order.
// The result is cached against (revision, filter) until either changes.
// Callers must not mutate the returned slice.
func (e *Engine) FilteredRows(records []domain.AttendanceRecord, revision uint64, filter FilterState) []domain.AttendanceRecord {
	key := filter.Fingerprint(revision)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cacheKey == key {
		if e.observer != nil {
			e.observer.CacheHit()
		}
		return e.cacheRows
	}

	if e.observer != nil {
		e.observer.CacheMiss()
	}

	rows := make([]domain.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if filter.matches(rec.Year, rec.Month, rec.Site, rec.Service, rec.Attendance) {
			rows = append(rows, rec)
		}
	}

	e.cacheKey = key
	e.cacheRows = rows
	e.logger.Debug("filter cache refreshed",
		slog.Int("rows_in", len(records)),
		slog.Int("rows_out", len(rows)))
	return rows
}

// Invalidate drops the cached entry. Used after a dataset reset.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cacheKey = ""
	e.cacheRows = nil
}
