// Package store owns the attendance dataset: the ingestion state machine,
// service-alias consolidation, duplicate resolution and the revision counter
// that drives downstream cache invalidation.
package store

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"attendash/internal/dataprocessing"
	"attendash/internal/errors"
	"attendash/pkg/contracts/domain"
)

// State represents the ingestion lifecycle of the dataset.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

// ResolutionMode selects how duplicate (date, site, service) groups collapse.
type ResolutionMode string

const (
	// ResolutionSum merges duplicates by adding attendance and kids counts.
	ResolutionSum ResolutionMode = "sum"
	// ResolutionLatest keeps the group member with the highest ingestion index.
	ResolutionLatest ResolutionMode = "latest"
	// ResolutionFirst keeps the group member with the lowest ingestion index.
	ResolutionFirst ResolutionMode = "first"
)

// ParseResolutionMode validates a user-supplied mode string.
func ParseResolutionMode(s string) (ResolutionMode, error) {
	switch ResolutionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ResolutionSum:
		return ResolutionSum, nil
	case ResolutionLatest:
		return ResolutionLatest, nil
	case ResolutionFirst:
		return ResolutionFirst, nil
	}
	return "", errors.NewValidationError(
		fmt.Sprintf("unknown duplicate resolution mode %q (expected sum, latest or first)", s))
}

// Snapshot is a read-only view of the committed dataset. The records slice
// is shared, never copied: committed datasets are immutable by contract and
// replaced wholesale on the next successful ingestion.
type Snapshot struct {
	Records  []domain.AttendanceRecord
	Revision uint64
	State    State
	Mode     ResolutionMode
	Notices  domain.IngestNotices
	LastErr  string
}

// Store holds the dataset and its ingestion state. All access goes through
// the mutex; dataset replacement is atomic and a reader never observes a
// partially committed dataset.
type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger

	state    State
	mode     ResolutionMode
	revision uint64
	lastErr  string

	// hydrated is the aliased, hydrated, pre-resolution row set. Duplicate
	// resolution always restarts from here so switching modes never compounds
	// a previous merge.
	hydrated []domain.AttendanceRecord
	dataset  []domain.AttendanceRecord
	notices  domain.IngestNotices
}

// New creates an empty store with the default sum resolution mode.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger.With(slog.String("component", "dataset_store")),
		state:  StateEmpty,
		mode:   ResolutionSum,
	}
}

// BeginLoad marks a new ingestion attempt. Re-entrant from Loaded: a fresh
// upload may replace an existing dataset.
func (s *Store) BeginLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateLoading
	s.lastErr = ""
}

// FailLoad records a failed ingestion attempt. Any previously committed
// dataset stays untouched and readable.
func (s *Store) FailLoad(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	if err != nil {
		s.lastErr = err.Error()
	}
	s.logger.Warn("ingestion failed",
		slog.String("error", s.lastErr),
		slog.Int("retained_rows", len(s.dataset)))
}

// Ingest hydrates, alias-resolves and duplicate-resolves the parsed records,
// then commits them as the new dataset in one atomic step.
func (s *Store) Ingest(records []domain.AttendanceRecord) (domain.IngestNotices, error) {
	if len(records) == 0 {
		return domain.IngestNotices{}, errors.NewFormatError("CSV contains no data rows")
	}

	hydrated := make([]domain.AttendanceRecord, len(records))
	for i, rec := range records {
		if rec.Date.IsZero() {
			err := errors.NewValidationError("record is missing its Date")
			s.FailLoad(err)
			return domain.IngestNotices{}, err
		}
		hydrated[i] = dataprocessing.Hydrate(rec)
	}

	aliased, aliasGroups := resolveAliases(hydrated)

	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, dupGroups, dupRows := resolveDuplicates(aliased, s.mode)

	s.hydrated = aliased
	s.dataset = resolved
	s.revision++
	s.state = StateLoaded
	s.lastErr = ""
	s.notices = domain.IngestNotices{
		AliasGroups:     aliasGroups,
		DuplicateGroups: dupGroups,
		DuplicateRows:   dupRows,
		ResolutionMode:  string(s.mode),
		RowsIngested:    len(records),
		RowsCommitted:   len(resolved),
	}

	s.logger.Info("dataset committed",
		slog.Uint64("revision", s.revision),
		slog.Int("rows_ingested", len(records)),
		slog.Int("rows_committed", len(resolved)),
		slog.Int("alias_groups", len(aliasGroups)),
		slog.Int("duplicate_groups", dupGroups))

	return s.notices, nil
}

// SetResolutionMode re-resolves duplicates from the retained hydrated set
// under the new mode, without re-parsing. Changing the mode bumps the
// revision so cached filter results are discarded.
func (s *Store) SetResolutionMode(mode ResolutionMode) (domain.IngestNotices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	if len(s.hydrated) == 0 {
		s.notices.ResolutionMode = string(mode)
		return s.notices, nil
	}

	resolved, dupGroups, dupRows := resolveDuplicates(s.hydrated, mode)
	s.dataset = resolved
	s.revision++
	s.notices.DuplicateGroups = dupGroups
	s.notices.DuplicateRows = dupRows
	s.notices.ResolutionMode = string(mode)
	s.notices.RowsCommitted = len(resolved)

	s.logger.Info("duplicate resolution mode changed",
		slog.String("mode", string(mode)),
		slog.Uint64("revision", s.revision),
		slog.Int("rows_committed", len(resolved)))

	return s.notices, nil
}

// Reset discards the dataset and returns the store to its empty state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated = nil
	s.dataset = nil
	s.notices = domain.IngestNotices{}
	s.state = StateEmpty
	s.lastErr = ""
	s.revision++
}

// Snapshot returns the current dataset view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Records:  s.dataset,
		Revision: s.revision,
		State:    s.state,
		Mode:     s.mode,
		Notices:  s.notices,
		LastErr:  s.lastErr,
	}
}

// resolveAliases groups service names case-insensitively after collapsing
// internal whitespace. The first-seen spelling of each group becomes the
// canonical form and every record is rewritten to it.
func resolveAliases(records []domain.AttendanceRecord) ([]domain.AttendanceRecord, []domain.AliasGroup) {
	canonical := make(map[string]string)
	spellings := make(map[string][]string)
	var keyOrder []string

	out := make([]domain.AttendanceRecord, len(records))
	for i, rec := range records {
		collapsed := collapseWhitespace(rec.Service)
		key := strings.ToLower(collapsed)

		if _, seen := canonical[key]; !seen {
			canonical[key] = collapsed
			keyOrder = append(keyOrder, key)
		}
		if !containsString(spellings[key], collapsed) {
			spellings[key] = append(spellings[key], collapsed)
		}

		rec.Service = canonical[key]
		out[i] = rec
	}

	var groups []domain.AliasGroup
	for _, key := range keyOrder {
		if len(spellings[key]) > 1 {
			groups = append(groups, domain.AliasGroup{
				Canonical: canonical[key],
				Aliases:   spellings[key][1:],
			})
		}
	}
	return out, groups
}

// resolveDuplicates collapses (date, site, service) groups under the given
// mode. Output keeps the first-occurrence order of each group.
func resolveDuplicates(records []domain.AttendanceRecord, mode ResolutionMode) ([]domain.AttendanceRecord, int, int) {
	groups := make(map[string][]int)
	var keyOrder []string
	for i, rec := range records {
		key := rec.DuplicateKey()
		if _, seen := groups[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		groups[key] = append(groups[key], i)
	}

	resolved := make([]domain.AttendanceRecord, 0, len(keyOrder))
	dupGroups, dupRows := 0, 0
	for _, key := range keyOrder {
		indices := groups[key]
		if len(indices) > 1 {
			dupGroups++
			dupRows += len(indices) - 1
		}

		switch mode {
		case ResolutionLatest:
			resolved = append(resolved, records[indices[len(indices)-1]])
		case ResolutionFirst:
			resolved = append(resolved, records[indices[0]])
		default:
			merged := records[indices[0]]
			for _, idx := range indices[1:] {
				merged.Attendance += records[idx].Attendance
				merged.KidsCheckedIn += records[idx].KidsCheckedIn
			}
			resolved = append(resolved, merged)
		}
	}
	return resolved, dupGroups, dupRows
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
