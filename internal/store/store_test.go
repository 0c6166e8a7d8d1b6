package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "attendash/internal/errors"
	"attendash/pkg/contracts/domain"
)

func rec(date string, site, service string, attendance, kids int) domain.AttendanceRecord {
	d, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		panic(err)
	}
	return domain.AttendanceRecord{
		Date:          d,
		Year:          d.Format("2006"),
		Site:          site,
		Service:       service,
		Attendance:    attendance,
		KidsCheckedIn: kids,
	}
}

func TestStore_Lifecycle(t *testing.T) {
	s := New(nil)

	snap := s.Snapshot()
	assert.Equal(t, StateEmpty, snap.State)
	assert.Equal(t, ResolutionSum, snap.Mode)
	assert.Empty(t, snap.Records)
	assert.Zero(t, snap.Revision)

	s.BeginLoad()
	assert.Equal(t, StateLoading, s.Snapshot().State)

	notices, err := s.Ingest([]domain.AttendanceRecord{
		rec("2024-01-07", "Central", "9am", 100, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, notices.RowsIngested)
	assert.Equal(t, 1, notices.RowsCommitted)

	snap = s.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, uint64(1), snap.Revision)
	require.Len(t, snap.Records, 1)
	// ingestion hydrates ISO fields
	assert.Equal(t, "2024-01", snap.Records[0].YearWeek)
}

func TestStore_FailedLoadKeepsPreviousDataset(t *testing.T) {
	s := New(nil)
	_, err := s.Ingest([]domain.AttendanceRecord{
		rec("2024-01-07", "Central", "9am", 100, 10),
	})
	require.NoError(t, err)

	s.BeginLoad()
	s.FailLoad(apperrors.NewFormatError("CSV file is empty"))

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Contains(t, snap.LastErr, "empty")
	assert.Len(t, snap.Records, 1, "failed upload must not disturb the committed dataset")
}

func TestStore_IngestEmpty(t *testing.T) {
	s := New(nil)
	_, err := s.Ingest(nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsFormat(err))
}

func TestStore_AliasResolution(t *testing.T) {
	s := New(nil)
	notices, err := s.Ingest([]domain.AttendanceRecord{
		rec("2024-01-07", "Central", "Morning  Service", 100, 10),
		rec("2024-01-14", "Central", "morning service", 110, 12),
		rec("2024-01-21", "Central", "MORNING SERVICE", 120, 14),
		rec("2024-01-07", "Central", "Evening", 50, 5),
	})
	require.NoError(t, err)

	require.Len(t, notices.AliasGroups, 1)
	group := notices.AliasGroups[0]
	assert.Equal(t, "Morning Service", group.Canonical, "first-seen spelling wins, whitespace collapsed")
	assert.ElementsMatch(t, []string{"morning service", "MORNING SERVICE"}, group.Aliases)

	for _, r := range s.Snapshot().Records {
		if r.Service != "Evening" {
			assert.Equal(t, "Morning Service", r.Service)
		}
	}
}

func TestStore_DuplicateResolutionModes(t *testing.T) {
	input := []domain.AttendanceRecord{
		rec("2024-01-07", "Central", "9am", 100, 10),
		rec("2024-01-07", "Central", "9am", 40, 4),
		rec("2024-01-14", "Central", "9am", 200, 20),
	}

	tests := []struct {
		mode           ResolutionMode
		wantAttendance int
		wantKids       int
	}{
		{mode: ResolutionSum, wantAttendance: 140, wantKids: 14},
		{mode: ResolutionLatest, wantAttendance: 40, wantKids: 4},
		{mode: ResolutionFirst, wantAttendance: 100, wantKids: 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s := New(nil)
			_, err := s.Ingest(input)
			require.NoError(t, err)

			notices, err := s.SetResolutionMode(tt.mode)
			require.NoError(t, err)
			assert.Equal(t, string(tt.mode), notices.ResolutionMode)
			assert.Equal(t, 1, notices.DuplicateGroups)
			assert.Equal(t, 1, notices.DuplicateRows)
			assert.Equal(t, 2, notices.RowsCommitted)

			snap := s.Snapshot()
			require.Len(t, snap.Records, 2)
			assert.Equal(t, tt.wantAttendance, snap.Records[0].Attendance)
			assert.Equal(t, tt.wantKids, snap.Records[0].KidsCheckedIn)
			assert.Equal(t, 200, snap.Records[1].Attendance)
		})
	}
}

func TestStore_ModeSwitchDoesNotCompound(t *testing.T) {
	s := New(nil)
	_, err := s.Ingest([]domain.AttendanceRecord{
		rec("2024-01-07", "Central", "9am", 100, 10),
		rec("2024-01-07", "Central", "9am", 40, 4),
	})
	require.NoError(t, err)

	// sum is the default: 140 committed
	assert.Equal(t, 140, s.Snapshot().Records[0].Attendance)

	_, err = s.SetResolutionMode(ResolutionLatest)
	require.NoError(t, err)
	assert.Equal(t, 40, s.Snapshot().Records[0].Attendance)

	// switching back re-resolves from the retained pre-merge rows, not from
	// the previously collapsed dataset
	_, err = s.SetResolutionMode(ResolutionSum)
	require.NoError(t, err)
	assert.Equal(t, 140, s.Snapshot().Records[0].Attendance)
}

func TestStore_ModeSwitchBumpsRevision(t *testing.T) {
	s := New(nil)
	_, err := s.Ingest([]domain.AttendanceRecord{
		rec("2024-01-07", "Central", "9am", 100, 10),
	})
	require.NoError(t, err)
	before := s.Snapshot().Revision

	_, err = s.SetResolutionMode(ResolutionFirst)
	require.NoError(t, err)
	assert.Greater(t, s.Snapshot().Revision, before)
}

func TestStore_SetModeWithoutData(t *testing.T) {
	s := New(nil)
	notices, err := s.SetResolutionMode(ResolutionLatest)
	require.NoError(t, err)
	assert.Equal(t, "latest", notices.ResolutionMode)
	assert.Equal(t, ResolutionLatest, s.Snapshot().Mode)
}

func TestStore_AliasResolutionBeforeDuplicateDetection(t *testing.T) {
	// Two rows that only collide after the service names are unified.
	s := New(nil)
	notices, err := s.Ingest([]domain.AttendanceRecord{
		rec("2024-01-07", "Central", "9 AM", 100, 10),
		rec("2024-01-07", "Central", "9 am", 40, 4),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, notices.DuplicateGroups)
	snap := s.Snapshot()
	require.Len(t, snap.Records, 1)
	assert.Equal(t, 140, snap.Records[0].Attendance)
}

func TestStore_Reset(t *testing.T) {
	s := New(nil)
	_, err := s.Ingest([]domain.AttendanceRecord{
		rec("2024-01-07", "Central", "9am", 100, 10),
	})
	require.NoError(t, err)
	before := s.Snapshot().Revision

	s.Reset()
	snap := s.Snapshot()
	assert.Equal(t, StateEmpty, snap.State)
	assert.Empty(t, snap.Records)
	assert.Greater(t, snap.Revision, before)
}

func TestParseResolutionMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ResolutionMode
		wantErr bool
	}{
		{in: "sum", want: ResolutionSum},
		{in: " Latest ", want: ResolutionLatest},
		{in: "FIRST", want: ResolutionFirst},
		{in: "merge", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseResolutionMode(tt.in)
		if tt.wantErr {
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
