package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var dutyTable = tableSpec{
	name:          "duties",
	columns:       []string{"id", "prefect_id", "title", "location", "duty_date", "start_at", "end_at", "status", "notes", "assigned_by", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.prefect_id",
	joinSelect:    "u.full_name AS prefect_name",
	updatable:     []string{"title", "location", "duty_date", "start_at", "end_at", "status", "notes"},
	ownerColumn:   "prefect_id",
	statusColumn:  "status",
	dateColumn:    "duty_date",
	searchColumns: []string{"t.title", "t.location", "u.full_name"},
}

// DutyRepository persists duty assignments.
type DutyRepository struct {
	*crudTable[models.Duty]
}

// NewDutyRepository constructs the repository.
func NewDutyRepository(db *sqlx.DB) *DutyRepository {
	return &DutyRepository{crudTable: newCrudTable[models.Duty](db, dutyTable)}
}

// Create inserts a duty.
func (r *DutyRepository) Create(ctx context.Context, d *models.Duty) (*models.Duty, error) {
	d.Stamp(r.now())
	return r.insert(ctx, d)
}
