package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/export"
	"github.com/noah-isme/prefect-api/pkg/storage"
)

const exportPageSize = 100

type fileStorage interface {
	Save(key string, data []byte) (string, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type resourceLister[T any] interface {
	List(ctx context.Context, filter models.ListFilter) ([]T, int, error)
}

// ExportSources are the repositories datasets are read from.
type ExportSources struct {
	Attendance    resourceLister[models.Attendance]
	Complaints    resourceLister[models.Complaint]
	Incidents     resourceLister[models.Incident]
	Duties        resourceLister[models.Duty]
	GateLogs      resourceLister[models.GateLog]
	WeeklyReports resourceLister[models.WeeklyReport]
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       export.Format
	ExpiresAt    time.Time
}

// ExportService builds resource datasets and persists rendered files.
type ExportService struct {
	sources ExportSources
	storage fileStorage
	signer  *storage.Signer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(sources ExportSources, files fileStorage, signer *storage.Signer, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		sources: sources,
		storage: files,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the job's dataset and stores it behind a signed URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format, err := export.ParseFormat(job.Params.Format)
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := export.RendererFor(format).Render(dataset)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, format), payload)
	if err != nil {
		return nil, err
	}

	token, grant, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    grant.ExpiresAt,
	}, nil
}

// VerifyToken validates a download token. The grant subject is the export job id.
func (s *ExportService) VerifyToken(token string, allowExpired bool) (storage.Grant, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob, format export.Format) string {
	return fmt.Sprintf("%s/%s_%s.%s", job.Resource, s.now().Format("20060102_150405"), sanitizeFilename(job.ID), format)
}

func sanitizeFilename(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, error) {
	filter := models.ListFilter{
		OwnerID:  job.Params.OwnerID,
		Status:   job.Params.Status,
		DateFrom: job.Params.DateFrom,
		DateTo:   job.Params.DateTo,
	}
	switch job.Resource {
	case models.ExportAttendance:
		return buildDataset(ctx, s.sources.Attendance, filter, "Attendance",
			[]string{"Date", "Prefect", "Status", "Check In", "Remarks"},
			func(a models.Attendance) []string {
				return []string{a.Date.Format(dateLayout), deref(a.PrefectName), string(a.Status), formatTime(a.CheckInAt), deref(a.Remarks)}
			})
	case models.ExportComplaints:
		return buildDataset(ctx, s.sources.Complaints, filter, "Complaints",
			[]string{"Filed", "Submitted By", "Title", "Category", "Status", "Resolved"},
			func(c models.Complaint) []string {
				return []string{c.CreatedAt.Format(dateLayout), deref(c.SubmitterName), c.Title, c.Category, string(c.Status), formatTime(c.ResolvedAt)}
			})
	case models.ExportIncidents:
		return buildDataset(ctx, s.sources.Incidents, filter, "Incidents",
			[]string{"Occurred", "Reporter", "Title", "Location", "Severity", "Status"},
			func(i models.Incident) []string {
				return []string{formatTime(&i.OccurredAt), deref(i.ReporterName), i.Title, deref(i.Location), string(i.Severity), string(i.Status)}
			})
	case models.ExportDuties:
		return buildDataset(ctx, s.sources.Duties, filter, "Duties",
			[]string{"Date", "Prefect", "Title", "Location", "Start", "End", "Status"},
			func(d models.Duty) []string {
				return []string{d.DutyDate.Format(dateLayout), deref(d.PrefectName), d.Title, d.Location, d.StartAt.Format("15:04"), d.EndAt.Format("15:04"), string(d.Status)}
			})
	case models.ExportGateLogs:
		return buildDataset(ctx, s.sources.GateLogs, filter, "Gate Logs",
			[]string{"Logged", "Person", "Direction", "Purpose", "Recorded By"},
			func(g models.GateLog) []string {
				return []string{formatTime(&g.LoggedAt), g.PersonName, string(g.Direction), deref(g.Purpose), deref(g.RecorderName)}
			})
	case models.ExportWeeklyReports:
		return buildDataset(ctx, s.sources.WeeklyReports, filter, "Weekly Reports",
			[]string{"Week Start", "Week End", "Prefect", "Status", "Summary"},
			func(w models.WeeklyReport) []string {
				return []string{w.WeekStart.Format(dateLayout), w.WeekEnd.Format(dateLayout), deref(w.PrefectName), string(w.Status), w.Summary}
			})
	default:
		return export.Dataset{}, fmt.Errorf("unsupported export resource %s", job.Resource)
	}
}

// buildDataset pages through every row matching filter and renders each one.
func buildDataset[T any](ctx context.Context, source resourceLister[T], filter models.ListFilter, title string, headers []string, row func(T) []string) (export.Dataset, error) {
	if source == nil {
		return export.Dataset{}, fmt.Errorf("no source configured for %s", title)
	}
	data := export.Dataset{Title: title, Headers: headers, Rows: make([]map[string]string, 0)}
	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := source.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load %s: %w", strings.ToLower(title), err)
		}
		for _, item := range items {
			values := row(item)
			record := make(map[string]string, len(headers))
			for i, h := range headers {
				record[h] = values[i]
			}
			data.Rows = append(data.Rows, record)
		}
		if len(items) < exportPageSize || page*exportPageSize >= total {
			break
		}
	}
	return data, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
