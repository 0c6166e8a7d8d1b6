package services

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendash/internal/analytics"
	apperrors "attendash/internal/errors"
	"attendash/internal/store"
	"attendash/internal/websocket"
)

const sampleCSV = `Week,Date,Year,Month,Site,Service,Attendance,Kids Checked-in
1,2024-01-07,2024,January,Central,9am,100,10
1,2024-01-07,2024,January,Central,11am,150,15
2,2024-01-14,2024,January,Central,9am,110,12`

type captureHub struct {
	mu      sync.Mutex
	updates []websocket.DataUpdate
}

func (h *captureHub) BroadcastDataUpdate(u websocket.DataUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
}

func (h *captureHub) last() (websocket.DataUpdate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.updates) == 0 {
		return websocket.DataUpdate{}, false
	}
	return h.updates[len(h.updates)-1], true
}

func newTestService(hub Broadcaster) *AttendanceService {
	return NewAttendanceService(nil, store.New(nil), Options{Hub: hub})
}

func allFilter() analytics.FilterState {
	return analytics.FilterState{
		Years:    analytics.SelectAll(),
		Sites:    analytics.SelectAll(),
		Services: analytics.SelectAll(),
	}
}

func TestIngestUpload_CommitsAndBroadcasts(t *testing.T) {
	hub := &captureHub{}
	svc := newTestService(hub)

	notices, err := svc.IngestUpload(context.Background(), "attendance.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, notices.RowsCommitted)

	snap := svc.Snapshot()
	assert.Equal(t, store.StateLoaded, snap.State)
	assert.Len(t, snap.Records, 3)

	update, ok := hub.last()
	require.True(t, ok)
	assert.Equal(t, snap.Revision, update.Revision)
	assert.Equal(t, 3, update.RowCount)
}

func TestIngestUpload_FailureKeepsPreviousDataset(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.IngestUpload(context.Background(), "ok.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	_, err = svc.IngestUpload(context.Background(), "bad.csv", strings.NewReader("Week,Date\n1,2024-01-07"))
	require.Error(t, err)
	assert.True(t, apperrors.IsFormat(err))

	snap := svc.Snapshot()
	assert.Equal(t, store.StateFailed, snap.State)
	assert.Len(t, snap.Records, 3, "previous dataset must survive a failed upload")
}

func TestIngestUpload_OversizeRejected(t *testing.T) {
	svc := newTestService(nil)

	var sb strings.Builder
	sb.WriteString("Week,Date,Year,Month,Site,Service,Attendance,Kids Checked-in\n")
	row := "1,2024-01-07,2024,January,Central,9am,100,10\n"
	for sb.Len() < 2*1024*1024+1 {
		sb.WriteString(row)
	}

	_, err := svc.IngestUpload(context.Background(), "big.csv", strings.NewReader(sb.String()))
	require.Error(t, err)
	assert.True(t, apperrors.IsLimit(err))
}

func TestAggregates(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.IngestUpload(context.Background(), "attendance.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	view := svc.Aggregates(allFilter())
	assert.Equal(t, 3, view.RowCount)
	assert.Equal(t, "loaded", view.State)
	require.Len(t, view.Dates, 2)
	assert.Equal(t, 250, view.Dates[0].AttendanceSum)
	require.Len(t, view.Monthly, 1)
	assert.Equal(t, "January", view.Monthly[0].Month)
	require.Len(t, view.Services, 2)
	assert.Equal(t, "9am", view.Services[0].Label)
	require.Len(t, view.Sites, 1)
	require.Len(t, view.Years, 1)
}

func TestExportCSV_FilteredRoundTrip(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.IngestUpload(context.Background(), "attendance.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	filter := allFilter()
	filter.Services = analytics.SelectValues("9am")

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(&buf, filter))

	out := buf.String()
	assert.Contains(t, out, "9am")
	assert.NotContains(t, out, "11am")
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(out), "\n")+1, "header plus two rows")
}

func TestSetResolutionMode(t *testing.T) {
	hub := &captureHub{}
	svc := newTestService(hub)

	dupCSV := `Week,Date,Year,Month,Site,Service,Attendance,Kids Checked-in
1,2024-01-07,2024,January,Central,9am,100,10
1,2024-01-07,2024,January,Central,9am,50,5`
	_, err := svc.IngestUpload(context.Background(), "dup.csv", strings.NewReader(dupCSV))
	require.NoError(t, err)
	assert.Equal(t, 150, svc.Snapshot().Records[0].Attendance)

	notices, err := svc.SetResolutionMode(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "first", notices.ResolutionMode)
	assert.Equal(t, 100, svc.Snapshot().Records[0].Attendance)

	_, err = svc.SetResolutionMode(context.Background(), "bogus")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	update, ok := hub.last()
	require.True(t, ok)
	assert.Equal(t, svc.Snapshot().Revision, update.Revision)
}

func TestStartIngest_DeliversResult(t *testing.T) {
	svc := newTestService(nil)

	jobID := svc.StartIngest(context.Background(), "attendance.csv", strings.NewReader(sampleCSV))
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		res := svc.LastIngestResult()
		return res != nil && res.JobID == jobID
	}, 2*time.Second, 10*time.Millisecond)

	res := svc.LastIngestResult()
	assert.Empty(t, res.Error)
	assert.Equal(t, 3, res.Notices.RowsCommitted)
}

func TestStartIngest_SupersededJobDropped(t *testing.T) {
	svc := newTestService(nil)

	// slowReader stalls the first job until the second one has been started.
	release := make(chan struct{})
	first := svc.StartIngest(context.Background(), "slow.csv", &gatedReader{
		gate: release,
		data: strings.NewReader(sampleCSV),
	})
	second := svc.StartIngest(context.Background(), "fast.csv", strings.NewReader(sampleCSV))
	close(release)

	require.Eventually(t, func() bool {
		res := svc.LastIngestResult()
		return res != nil && res.JobID == second
	}, 2*time.Second, 10*time.Millisecond)

	// Give the superseded job time to finish; its result must not replace
	// the newer one.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, second, svc.LastIngestResult().JobID)
	assert.NotEqual(t, first, svc.LastIngestResult().JobID)
}

func TestReset(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.IngestUpload(context.Background(), "attendance.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	svc.Reset()
	snap := svc.Snapshot()
	assert.Equal(t, store.StateEmpty, snap.State)
	assert.Empty(t, snap.Records)
}

// gatedReader blocks the first Read until its gate closes.
type gatedReader struct {
	gate <-chan struct{}
	data *strings.Reader
	once sync.Once
}

func (r *gatedReader) Read(p []byte) (int, error) {
	r.once.Do(func() { <-r.gate })
	return r.data.Read(p)
}
