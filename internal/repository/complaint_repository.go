package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var complaintTable = tableSpec{
	name:          "complaints",
	columns:       []string{"id", "submitted_by", "title", "description", "category", "status", "response", "resolved_at", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.submitted_by",
	joinSelect:    "u.full_name AS submitter_name",
	updatable:     []string{"title", "description", "category", "status", "response", "resolved_at"},
	ownerColumn:   "submitted_by",
	statusColumn:  "status",
	dateColumn:    "created_at",
	searchColumns: []string{"t.title", "t.description", "t.category"},
}

// ComplaintRepository persists complaints.
type ComplaintRepository struct {
	*crudTable[models.Complaint]
}

// NewComplaintRepository constructs the repository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{crudTable: newCrudTable[models.Complaint](db, complaintTable)}
}

// Create inserts a complaint.
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	c.Stamp(r.now())
	return r.insert(ctx, c)
}
