package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var gateLogTable = tableSpec{
	name:          "gate_logs",
	columns:       []string{"id", "recorded_by", "person_name", "purpose", "direction", "logged_at", "notes", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.recorded_by",
	joinSelect:    "u.full_name AS recorder_name",
	updatable:     []string{"person_name", "purpose", "direction", "logged_at", "notes"},
	ownerColumn:   "recorded_by",
	statusColumn:  "direction",
	dateColumn:    "logged_at",
	searchColumns: []string{"t.person_name", "t.purpose", "t.notes"},
}

// GateLogRepository persists gate crossings.
type GateLogRepository struct {
	*crudTable[models.GateLog]
}

// NewGateLogRepository constructs the repository.
func NewGateLogRepository(db *sqlx.DB) *GateLogRepository {
	return &GateLogRepository{crudTable: newCrudTable[models.GateLog](db, gateLogTable)}
}

// Create inserts a gate log.
func (r *GateLogRepository) Create(ctx context.Context, g *models.GateLog) (*models.GateLog, error) {
	g.Stamp(r.now())
	return r.insert(ctx, g)
}
