package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

type fakeDashboardRepo struct {
	summary      models.DashboardSummary
	counts       []models.StatusCount
	summaryCalls int
	err          error
}

func (f *fakeDashboardRepo) Summary(ctx context.Context, now time.Time) (*models.DashboardSummary, error) {
	f.summaryCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := f.summary
	return &out, nil
}

func (f *fakeDashboardRepo) AttendanceByStatus(ctx context.Context, day time.Time) ([]models.StatusCount, error) {
	return f.counts, nil
}

type fakeSnapshotter struct{}

func (fakeSnapshotter) Snapshot() models.SystemMetrics {
	return models.SystemMetrics{CacheHitRatio: 0.5, Goroutines: 7}
}

func TestDashboardSummaryFillsAttendanceBuckets(t *testing.T) {
	repo := &fakeDashboardRepo{
		summary: models.DashboardSummary{PendingComplaints: 3, OpenIncidents: 1},
		counts:  []models.StatusCount{{Status: "present", Count: 12}},
	}
	svc := NewDashboardService(repo, nil, fakeSnapshotter{}, nil, DashboardServiceConfig{})

	summary, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, summary.PendingComplaints)
	assert.Equal(t, map[string]int{"present": 12, "absent": 0, "late": 0}, summary.AttendanceToday)
	assert.False(t, summary.GeneratedAt.IsZero())
	require.NotNil(t, summary.System)
	assert.Equal(t, 7, summary.System.Goroutines)
}

func TestDashboardSummaryServedFromCacheUntilInvalidated(t *testing.T) {
	repo := &fakeDashboardRepo{summary: models.DashboardSummary{PendingComplaints: 1}}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, nil, nil, DashboardServiceConfig{CacheTTL: time.Minute})
	ctx := context.Background()

	_, _, err := svc.Summary(ctx)
	require.NoError(t, err)
	repo.summary.PendingComplaints = 9

	cached, hit, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, cached.PendingComplaints)
	assert.Equal(t, 1, repo.summaryCalls)

	svc.Invalidate(ctx, "complaints")
	assert.NotEmpty(t, cacheRepo.deleted)

	fresh, _, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, fresh.PendingComplaints)
	assert.Equal(t, 2, repo.summaryCalls)
}

func TestDashboardSummaryWrapsRepositoryError(t *testing.T) {
	repo := &fakeDashboardRepo{err: errors.New("db down")}
	svc := NewDashboardService(repo, nil, nil, nil, DashboardServiceConfig{})

	_, _, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestResourceWritesInvalidateDashboard(t *testing.T) {
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	dashboard := NewDashboardService(&fakeDashboardRepo{}, cache, nil, nil, DashboardServiceConfig{})
	ctx := context.Background()
	_, _, err := dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, cacheRepo.entries, 1)

	complaints := NewComplaintService(newFakeResourceRepo[models.Complaint, *models.Complaint](nil), nil, nil, nil)
	complaints.OnChange(dashboard.Invalidate)
	_, err = complaints.Create(ctx, student("s1"), models.CreateComplaintRequest{Title: "t", Description: "d"})
	require.NoError(t, err)

	assert.Empty(t, cacheRepo.entries)
}
