package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var weeklyReportTable = tableSpec{
	name:          "weekly_reports",
	columns:       []string{"id", "prefect_id", "week_start", "week_end", "summary", "challenges", "plans", "status", "feedback", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.prefect_id",
	joinSelect:    "u.full_name AS prefect_name",
	updatable:     []string{"week_start", "week_end", "summary", "challenges", "plans", "status", "feedback"},
	ownerColumn:   "prefect_id",
	statusColumn:  "status",
	dateColumn:    "week_start",
	searchColumns: []string{"t.summary", "t.challenges", "t.plans"},
}

// WeeklyReportRepository persists weekly reports.
type WeeklyReportRepository struct {
	*crudTable[models.WeeklyReport]
}

// NewWeeklyReportRepository constructs the repository.
func NewWeeklyReportRepository(db *sqlx.DB) *WeeklyReportRepository {
	return &WeeklyReportRepository{crudTable: newCrudTable[models.WeeklyReport](db, weeklyReportTable)}
}

// Create inserts a weekly report.
func (r *WeeklyReportRepository) Create(ctx context.Context, w *models.WeeklyReport) (*models.WeeklyReport, error) {
	w.Stamp(r.now())
	return r.insert(ctx, w)
}
