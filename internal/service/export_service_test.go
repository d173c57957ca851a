package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/internal/repository"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/export"
	"github.com/noah-isme/prefect-api/pkg/jobs"
	"github.com/noah-isme/prefect-api/pkg/storage"
)

type memoryExportJobs struct {
	mu   sync.Mutex
	jobs map[string]*models.ExportJob
}

func newMemoryExportJobs() *memoryExportJobs {
	return &memoryExportJobs{jobs: make(map[string]*models.ExportJob)}
}

func (m *memoryExportJobs) Create(ctx context.Context, job *models.ExportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now().UTC()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memoryExportJobs) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *job
	return &cp, nil
}

func (m *memoryExportJobs) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *memoryExportJobs) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ExportJob{}
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryExportJobs) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ExportJob{}
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type staticLister[T any] struct {
	rows    []T
	filters []models.ListFilter
}

func (s *staticLister[T]) List(ctx context.Context, filter models.ListFilter) ([]T, int, error) {
	s.filters = append(s.filters, filter)
	return s.rows, len(s.rows), nil
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return nil, f.err
}

type exportOutcomes struct{ statuses []models.ExportStatus }

func (e *exportOutcomes) ExportFinished(status models.ExportStatus) {
	e.statuses = append(e.statuses, status)
}

type exportFixture struct {
	jobs       *memoryExportJobs
	dispatcher *recordingDispatcher
	complaints *staticLister[models.Complaint]
	exporter   *ExportService
	service    *ExportJobService
	worker     *ExportWorker
	outcomes   *exportOutcomes
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	name := "Ada"
	complaints := &staticLister[models.Complaint]{rows: []models.Complaint{
		{Record: models.Record{ID: "c1", CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}, SubmittedBy: "s1", SubmitterName: &name, Title: "Broken tap", Category: "facilities", Status: models.ComplaintStatusPending},
	}}
	exporter := NewExportService(ExportSources{Complaints: complaints}, files, storage.NewSigner("secret", time.Hour), ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	store := newMemoryExportJobs()
	dispatcher := &recordingDispatcher{}
	outcomes := &exportOutcomes{}
	return &exportFixture{
		jobs:       store,
		dispatcher: dispatcher,
		complaints: complaints,
		exporter:   exporter,
		service:    NewExportJobService(store, dispatcher, exporter, nil, nil, ExportJobServiceConfig{ResultTTL: time.Hour}),
		worker:     NewExportWorker(store, exporter, outcomes, nil),
		outcomes:   outcomes,
	}
}

func TestExportJobScopesNonManagersToOwnRows(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	job, err := f.service.CreateJob(ctx, student("s1"), models.ExportRequest{Resource: models.ExportComplaints, OwnerID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, "s1", job.Params.OwnerID)
	assert.Equal(t, string(export.FormatCSV), job.Params.Format)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, f.dispatcher.jobs, 1)
	assert.Equal(t, job.ID, f.dispatcher.jobs[0].ID)

	managed, err := f.service.CreateJob(ctx, admin("a1"), models.ExportRequest{Resource: models.ExportComplaints, OwnerID: "s2", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "s2", managed.Params.OwnerID)
	assert.Equal(t, "pdf", managed.Params.Format)
}

func TestExportJobValidation(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateJob(ctx, admin("a1"), models.ExportRequest{Resource: "grades"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err = f.service.CreateJob(ctx, admin("a1"), models.ExportRequest{Resource: models.ExportDuties, DateFrom: &from, DateTo: &to})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportJobEnqueueFailureMarksJobFailed(t *testing.T) {
	f := newExportFixture(t)
	f.dispatcher.err = errors.New("queue stopped")

	_, err := f.service.CreateJob(context.Background(), admin("a1"), models.ExportRequest{Resource: models.ExportComplaints})
	require.Error(t, err)
	require.Len(t, f.jobs.jobs, 1)
	for _, job := range f.jobs.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportWorkerGeneratesDownloadableFile(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	job, err := f.service.CreateJob(ctx, student("s1"), models.ExportRequest{Resource: models.ExportComplaints})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, jobs.Job{ID: job.ID}))
	assert.Equal(t, []models.ExportStatus{models.ExportStatusFinished}, f.outcomes.statuses)
	assert.Equal(t, "s1", f.complaints.filters[0].OwnerID)

	status, err := f.service.GetStatus(ctx, student("s1"), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Job.Status)
	assert.Equal(t, 100, status.Job.Progress)
	require.NotNil(t, status.DownloadURL)
	assert.True(t, strings.HasPrefix(*status.DownloadURL, "/api/v1/export/"))
	assert.NotNil(t, status.ExpiresAt)

	_, err = f.service.GetStatus(ctx, student("s2"), job.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = f.service.GetStatus(ctx, admin("a1"), job.ID)
	assert.NoError(t, err)

	download, err := f.service.ResolveDownload(ctx, extractToken(*status.DownloadURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, export.FormatCSV, download.Format)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Broken tap")
	assert.Contains(t, string(body), "Submitted By")

	_, err = f.service.ResolveDownload(ctx, "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestExportWorkerFailureRequeuesUntilExhausted(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	job, err := f.service.CreateJob(ctx, admin("a1"), models.ExportRequest{Resource: models.ExportComplaints})
	require.NoError(t, err)

	worker := NewExportWorker(f.jobs, failingGenerator{err: errors.New("disk full")}, f.outcomes, nil)
	err = worker.Handle(ctx, jobs.Job{ID: job.ID})
	require.Error(t, err)
	stored, _ := f.jobs.GetByID(ctx, job.ID)
	assert.Equal(t, models.ExportStatusQueued, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "disk full", *stored.ErrorMessage)

	worker.MarkExhausted(ctx, jobs.Job{ID: job.ID}, err)
	stored, _ = f.jobs.GetByID(ctx, job.ID)
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	assert.NotNil(t, stored.FinishedAt)
	assert.Equal(t, []models.ExportStatus{models.ExportStatusFailed}, f.outcomes.statuses)

	_, err = f.service.ResolveDownload(ctx, "anything")
	assert.Error(t, err)
}

func TestExportRecoverPendingJobs(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	require.NoError(t, f.jobs.Create(ctx, &models.ExportJob{Resource: models.ExportDuties, Status: models.ExportStatusQueued}))
	require.NoError(t, f.jobs.Create(ctx, &models.ExportJob{Resource: models.ExportDuties, Status: models.ExportStatusFinished}))

	f.service.RecoverPendingJobs(ctx)
	require.Len(t, f.dispatcher.jobs, 1)
	assert.Equal(t, string(models.ExportDuties), f.dispatcher.jobs[0].Type)
}

func TestExportRunCleanupStopsWithContext(t *testing.T) {
	f := newExportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.service.RunCleanup(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestExportUnsupportedResourceFails(t *testing.T) {
	f := newExportFixture(t)
	_, err := f.exporter.Generate(context.Background(), &models.ExportJob{ID: "x", Resource: models.ExportIncidents, Params: models.ExportParams{Format: "csv"}})
	assert.Error(t, err)
}
