package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

// DashboardRepository aggregates management counters.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary computes the overview counters in a single round trip.
func (r *DashboardRepository) Summary(ctx context.Context, now time.Time) (*models.DashboardSummary, error) {
	const query = `SELECT
  (SELECT COUNT(*) FROM complaints WHERE status = 'pending') AS pending_complaints,
  (SELECT COUNT(*) FROM incidents WHERE status <> 'closed') AS open_incidents,
  (SELECT COUNT(*) FROM duties WHERE status = 'assigned') AS assigned_duties,
  (SELECT COUNT(*) FROM applications WHERE status IN ('pending', 'under_review')) AS pending_applications,
  (SELECT COUNT(*) FROM events WHERE status = 'scheduled' AND start_at >= $1) AS upcoming_events`
	var summary models.DashboardSummary
	if err := r.db.GetContext(ctx, &summary, query, now); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &summary, nil
}

// AttendanceByStatus groups attendance on a given day.
func (r *DashboardRepository) AttendanceByStatus(ctx context.Context, day time.Time) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM attendance WHERE date = $1 GROUP BY status ORDER BY status`
	rows := make([]models.StatusCount, 0)
	if err := r.db.SelectContext(ctx, &rows, query, day.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("attendance by status: %w", err)
	}
	return rows, nil
}
