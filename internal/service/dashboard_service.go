package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

const dashboardCachePrefix = "dashboard:"

type dashboardRepository interface {
	Summary(ctx context.Context, now time.Time) (*models.DashboardSummary, error)
	AttendanceByStatus(ctx context.Context, day time.Time) ([]models.StatusCount, error)
}

type systemSnapshotter interface {
	Snapshot() models.SystemMetrics
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the management overview.
type DashboardService struct {
	repo    dashboardRepository
	cache   *CacheService
	metrics systemSnapshotter
	logger  *zap.Logger
	now     func() time.Time
	cfg     DashboardServiceConfig
}

// NewDashboardService constructs the dashboard service. cache and metrics may be nil.
func NewDashboardService(repo dashboardRepository, cache *CacheService, metrics systemSnapshotter, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		cfg:     cfg,
	}
}

// Summary returns the overview counters for today and whether they came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	now := s.now()
	key := dashboardCachePrefix + now.Format(dateLayout)

	summary, hit, err := Remember(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (*models.DashboardSummary, error) {
		return s.load(ctx, now)
	})
	if err != nil {
		return nil, false, err
	}
	return s.withSystem(summary), hit, nil
}

func (s *DashboardService) load(ctx context.Context, now time.Time) (*models.DashboardSummary, error) {
	summary, err := s.repo.Summary(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard summary")
	}
	counts, err := s.repo.AttendanceByStatus(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance summary")
	}
	summary.AttendanceToday = map[string]int{
		string(models.AttendanceStatusPresent): 0,
		string(models.AttendanceStatusAbsent):  0,
		string(models.AttendanceStatusLate):    0,
	}
	for _, c := range counts {
		summary.AttendanceToday[c.Status] = c.Count
	}
	summary.GeneratedAt = now
	return summary, nil
}

// Invalidate drops cached summaries. It matches the ChangeHook signature so
// resource services can register it directly.
func (s *DashboardService) Invalidate(ctx context.Context, resource string) {
	if err := s.cache.Invalidate(ctx, dashboardCachePrefix+"*"); err != nil {
		s.logger.Debug("dashboard cache not invalidated", zap.String("resource", resource), zap.Error(err))
	}
}

func (s *DashboardService) withSystem(summary *models.DashboardSummary) *models.DashboardSummary {
	if s.metrics != nil {
		snapshot := s.metrics.Snapshot()
		summary.System = &snapshot
	}
	return summary
}
