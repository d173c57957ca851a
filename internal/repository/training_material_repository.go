package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var trainingMaterialTable = tableSpec{
	name:          "training_materials",
	columns:       []string{"id", "uploaded_by", "title", "description", "category", "file_key", "file_url", "mime_type", "file_size", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.uploaded_by",
	joinSelect:    "u.full_name AS uploader_name",
	updatable:     []string{"title", "description", "category", "file_key", "file_url", "mime_type", "file_size"},
	ownerColumn:   "uploaded_by",
	statusColumn:  "category",
	dateColumn:    "created_at",
	searchColumns: []string{"t.title", "t.description"},
}

// TrainingMaterialRepository persists training material metadata.
type TrainingMaterialRepository struct {
	*crudTable[models.TrainingMaterial]
}

// NewTrainingMaterialRepository constructs the repository.
func NewTrainingMaterialRepository(db *sqlx.DB) *TrainingMaterialRepository {
	return &TrainingMaterialRepository{crudTable: newCrudTable[models.TrainingMaterial](db, trainingMaterialTable)}
}

// Create inserts a training material.
func (r *TrainingMaterialRepository) Create(ctx context.Context, m *models.TrainingMaterial) (*models.TrainingMaterial, error) {
	m.Stamp(r.now())
	return r.insert(ctx, m)
}
