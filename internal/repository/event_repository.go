package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

var eventTable = tableSpec{
	name:          "events",
	columns:       []string{"id", "created_by", "title", "description", "location", "start_at", "end_at", "status", "created_at", "updated_at"},
	joins:         "LEFT JOIN users u ON u.id = t.created_by",
	joinSelect:    "u.full_name AS creator_name",
	updatable:     []string{"title", "description", "location", "start_at", "end_at", "status"},
	ownerColumn:   "created_by",
	statusColumn:  "status",
	dateColumn:    "start_at",
	searchColumns: []string{"t.title", "t.description", "t.location"},
}

// EventRepository persists school events.
type EventRepository struct {
	*crudTable[models.Event]
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{crudTable: newCrudTable[models.Event](db, eventTable)}
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	e.Stamp(r.now())
	return r.insert(ctx, e)
}
