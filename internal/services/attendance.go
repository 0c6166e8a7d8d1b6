// Package services orchestrates ingestion, analytics and export around the
// dataset store. Transport handlers call into this layer only.
package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"attendash/internal/analytics"
	"attendash/internal/dataprocessing"
	"attendash/internal/errors"
	"attendash/internal/exporter"
	"attendash/internal/infrastructure"
	"attendash/internal/security"
	"attendash/internal/store"
	"attendash/internal/websocket"
	"attendash/pkg/contracts/domain"
)

// Broadcaster pushes dataset change events to connected clients.
type Broadcaster interface {
	BroadcastDataUpdate(update websocket.DataUpdate)
}

// IngestResult is the outcome of an asynchronous ingestion job.
type IngestResult struct {
	JobID       string               `json:"job_id"`
	Notices     domain.IngestNotices `json:"notices"`
	Error       string               `json:"error,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`
}

// AttendanceService owns the upload-to-dashboard workflow.
type AttendanceService struct {
	logger  *slog.Logger
	parser  *dataprocessing.Parser
	store   *store.Store
	engine  *analytics.Engine
	metrics *infrastructure.Metrics
	hub     Broadcaster

	uploadTimeout time.Duration

	// jobMu guards the async ingest bookkeeping. Only the most recently
	// started job may commit; superseded jobs have their results dropped.
	jobMu      sync.Mutex
	currentJob string
	lastResult *IngestResult
}

// Options configures optional service collaborators.
type Options struct {
	Metrics       *infrastructure.Metrics
	Hub           Broadcaster
	UploadTimeout time.Duration
}

// NewAttendanceService wires the service. Logger may be nil.
func NewAttendanceService(logger *slog.Logger, st *store.Store, opts Options) *AttendanceService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "attendance_service"))

	timeout := opts.UploadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var observer analytics.CacheObserver
	if opts.Metrics != nil {
		observer = opts.Metrics
	}

	return &AttendanceService{
		logger:        logger,
		parser:        dataprocessing.NewParser(logger),
		store:         st,
		engine:        analytics.NewEngine(logger, observer),
		metrics:       opts.Metrics,
		hub:           opts.Hub,
		uploadTimeout: timeout,
	}
}

// IngestUpload parses and commits an uploaded file synchronously. The file
// type is chosen by extension: .xlsx goes through the workbook reader, all
// else is treated as CSV text.
func (s *AttendanceService) IngestUpload(ctx context.Context, filename string, r io.Reader) (domain.IngestNotices, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	s.store.BeginLoad()

	records, err := s.parseUpload(ctx, filename, r)
	if err != nil {
		return s.failIngest(ctx, filename, err)
	}

	notices, err := s.store.Ingest(records)
	if err != nil {
		return s.failIngest(ctx, filename, err)
	}
	s.finishIngest(ctx, filename, notices)
	return notices, nil
}

func (s *AttendanceService) failIngest(ctx context.Context, filename string, err error) (domain.IngestNotices, error) {
	s.store.FailLoad(err)
	s.countIngest("failed")
	infrastructure.LoggerWithContext(ctx).Error("upload ingestion failed",
		slog.String("filename", filename),
		slog.String("error", err.Error()))
	return domain.IngestNotices{}, err
}

func (s *AttendanceService) finishIngest(ctx context.Context, filename string, notices domain.IngestNotices) {
	s.countIngest("success")
	if s.metrics != nil {
		s.metrics.RowsIngested.Add(float64(notices.RowsCommitted))
	}
	s.announce()
	infrastructure.LoggerWithContext(ctx).Info("upload ingested",
		slog.String("filename", filename),
		slog.Int("rows_committed", notices.RowsCommitted))
}

// parseUpload reads, guards and parses the upload without touching the store.
func (s *AttendanceService) parseUpload(ctx context.Context, filename string, r io.Reader) ([]domain.AttendanceRecord, error) {
	// Read one byte past the cap so an oversize upload is detected without
	// buffering an unbounded body.
	data, err := io.ReadAll(io.LimitReader(r, security.MaxFileBytes+1))
	if err != nil {
		return nil, errors.NewStorageError("failed to read upload", err)
	}
	if err := security.CheckFileSize(int64(len(data))); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var records []domain.AttendanceRecord
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		records, err = s.parser.ParseWorkbook(bytes.NewReader(data))
	} else {
		records, err = s.parser.Parse(string(data))
	}
	if s.metrics != nil {
		s.metrics.ParseDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// StartIngest launches an asynchronous ingestion and returns its job ID.
// Starting a new job supersedes any in-flight one: the superseded job still
// runs to completion but its result is dropped and it never commits.
func (s *AttendanceService) StartIngest(ctx context.Context, filename string, r io.Reader) string {
	jobID := uuid.New().String()

	s.jobMu.Lock()
	s.currentJob = jobID
	s.jobMu.Unlock()

	// Detach from the request context; the upload outlives the HTTP request.
	jobCtx := infrastructure.WithTraceID(context.Background(), infrastructure.GetTraceID(ctx))

	go func() {
		notices, err := s.runIngestJob(jobCtx, jobID, filename, r)
		if err == errSuperseded {
			s.logger.Info("dropping result of superseded ingest job",
				slog.String("job_id", jobID))
			return
		}

		result := &IngestResult{JobID: jobID, CompletedAt: time.Now().UTC()}
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Notices = notices
		}

		s.jobMu.Lock()
		if s.currentJob == jobID {
			s.lastResult = result
		}
		s.jobMu.Unlock()
	}()

	return jobID
}

// errSuperseded marks a job overtaken by a newer upload. It is never exposed
// to callers.
var errSuperseded = errors.NewValidationError("ingest job superseded")

// runIngestJob parses off the store, then commits under the job lock so a
// superseded job can never overwrite a newer commit.
func (s *AttendanceService) runIngestJob(ctx context.Context, jobID, filename string, r io.Reader) (domain.IngestNotices, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	s.store.BeginLoad()

	records, parseErr := s.parseUpload(ctx, filename, r)

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.currentJob != jobID {
		return domain.IngestNotices{}, errSuperseded
	}
	if parseErr != nil {
		return s.failIngest(ctx, filename, parseErr)
	}

	notices, err := s.store.Ingest(records)
	if err != nil {
		return s.failIngest(ctx, filename, err)
	}
	s.finishIngest(ctx, filename, notices)
	return notices, nil
}

// LastIngestResult returns the most recent async job outcome, or nil.
func (s *AttendanceService) LastIngestResult() *IngestResult {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.lastResult
}

// AggregatesView bundles every chart feed for one filter state.
type AggregatesView struct {
	Revision uint64                      `json:"revision"`
	State    string                      `json:"state"`
	RowCount int                         `json:"row_count"`
	Dates    []domain.DateAggregate      `json:"dates"`
	Monthly  []domain.MonthAggregate     `json:"monthly"`
	Series   []domain.MonthSeriesPoint   `json:"series"`
	Services []domain.DimensionAggregate `json:"services"`
	Sites    []domain.DimensionAggregate `json:"sites"`
	Years    []domain.DimensionAggregate `json:"years"`
}

// Aggregates computes all aggregate views over the filtered dataset.
func (s *AttendanceService) Aggregates(filter analytics.FilterState) AggregatesView {
	snap := s.store.Snapshot()
	rows := s.engine.FilteredRows(snap.Records, snap.Revision, filter)

	return AggregatesView{
		Revision: snap.Revision,
		State:    string(snap.State),
		RowCount: len(rows),
		Dates:    analytics.AggregateByDate(rows),
		Monthly:  analytics.AggregateMonthly(rows),
		Series:   analytics.AggregateMonthlySeries(rows),
		Services: analytics.AggregateByDimension(rows, analytics.DimensionService),
		Sites:    analytics.AggregateByDimension(rows, analytics.DimensionSite),
		Years:    analytics.AggregateByDimension(rows, analytics.DimensionYear),
	}
}

// Records returns the filtered rows.
func (s *AttendanceService) Records(filter analytics.FilterState) []domain.AttendanceRecord {
	snap := s.store.Snapshot()
	return s.engine.FilteredRows(snap.Records, snap.Revision, filter)
}

// ExportCSV streams the filtered rows as CSV.
func (s *AttendanceService) ExportCSV(w io.Writer, filter analytics.FilterState) error {
	return exporter.Export(w, s.Records(filter))
}

// SetResolutionMode re-resolves duplicates under the new mode and announces
// the resulting dataset.
func (s *AttendanceService) SetResolutionMode(ctx context.Context, mode string) (domain.IngestNotices, error) {
	parsed, err := store.ParseResolutionMode(mode)
	if err != nil {
		return domain.IngestNotices{}, err
	}

	notices, err := s.store.SetResolutionMode(parsed)
	if err != nil {
		return domain.IngestNotices{}, err
	}

	s.announce()
	infrastructure.LoggerWithContext(ctx).Info("resolution mode set",
		slog.String("mode", mode))
	return notices, nil
}

// Notices returns the latest ingestion notices with dataset status.
func (s *AttendanceService) Notices() (domain.IngestNotices, store.Snapshot) {
	snap := s.store.Snapshot()
	return snap.Notices, snap
}

// Reset discards the dataset.
func (s *AttendanceService) Reset() {
	s.store.Reset()
	s.engine.Invalidate()
	s.announce()
}

// Snapshot exposes the current dataset view.
func (s *AttendanceService) Snapshot() store.Snapshot {
	return s.store.Snapshot()
}

func (s *AttendanceService) announce() {
	if s.hub == nil {
		return
	}
	snap := s.store.Snapshot()
	s.hub.BroadcastDataUpdate(websocket.DataUpdate{
		Revision: snap.Revision,
		RowCount: len(snap.Records),
		Notices:  snap.Notices,
	})
}

func (s *AttendanceService) countIngest(outcome string) {
	if s.metrics != nil {
		s.metrics.IngestTotal.WithLabelValues(outcome).Inc()
	}
}
