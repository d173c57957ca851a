package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var applicationTable = tableSpec{
	name:          "applications",
	columns:       []string{"id", "applicant_id", "position", "motivation", "experience", "status", "review_notes", "reviewed_by", "reviewed_at", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.applicant_id",
	joinSelect:    "u.full_name AS applicant_name",
	updatable:     []string{"position", "motivation", "experience", "status", "review_notes", "reviewed_by", "reviewed_at"},
	ownerColumn:   "applicant_id",
	statusColumn:  "status",
	dateColumn:    "created_at",
	searchColumns: []string{"t.position", "t.motivation", "u.full_name"},
}

// ApplicationRepository persists recruitment applications.
type ApplicationRepository struct {
	*crudTable[models.Application]
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{crudTable: newCrudTable[models.Application](db, applicationTable)}
}

// Create inserts an application.
func (r *ApplicationRepository) Create(ctx context.Context, a *models.Application) (*models.Application, error) {
	a.Stamp(r.now())
	return r.insert(ctx, a)
}
