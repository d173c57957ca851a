package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var incidentTable = tableSpec{
	name:          "incidents",
	columns:       []string{"id", "reported_by", "title", "description", "location", "severity", "status", "occurred_at", "action_taken", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.reported_by",
	joinSelect:    "u.full_name AS reporter_name",
	updatable:     []string{"title", "description", "location", "severity", "status", "occurred_at", "action_taken"},
	ownerColumn:   "reported_by",
	statusColumn:  "status",
	dateColumn:    "occurred_at",
	searchColumns: []string{"t.title", "t.description", "t.location"},
}

// IncidentRepository persists incidents.
type IncidentRepository struct {
	*crudTable[models.Incident]
}

// NewIncidentRepository constructs the repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{crudTable: newCrudTable[models.Incident](db, incidentTable)}
}

// Create inserts an incident.
func (r *IncidentRepository) Create(ctx context.Context, i *models.Incident) (*models.Incident, error) {
	i.Stamp(r.now())
	return r.insert(ctx, i)
}
