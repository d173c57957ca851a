package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

// EventService manages the shared events calendar.
type EventService struct {
	*resourceService[models.Event]
}

// NewEventService constructs the event service. Every member can read events.
func NewEventService(repo resourceRepository[models.Event], audit auditWriter, validate *validator.Validate, logger *zap.Logger) *EventService {
	return &EventService{newResourceService[models.Event]("events", "event", repo, audit, validate, logger, resourcePolicy{page: "events", publicRead: true})}
}

// Create schedules an event.
func (s *EventService) Create(ctx context.Context, actor models.Actor, req models.CreateEventRequest) (*models.Event, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if !s.isManager(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can schedule events")
	}
	if err := checkWindow(req.StartAt, req.EndAt); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, &models.Event{
		CreatedBy:   actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		Status:      models.EventStatusScheduled,
	})
}

// Update edits an event.
func (s *EventService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateEventRequest) (*models.Event, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := models.Fields{}
	setIf(fields, "title", req.Title)
	setIf(fields, "description", req.Description)
	setIf(fields, "location", req.Location)
	setIf(fields, "status", req.Status)
	if req.StartAt != nil || req.EndAt != nil {
		start, end := current.StartAt, current.EndAt
		if req.StartAt != nil {
			start = req.StartAt.UTC()
			fields["start_at"] = start
		}
		if req.EndAt != nil {
			end = req.EndAt.UTC()
			fields["end_at"] = end
		}
		if err := checkWindow(start, end); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// SetStatus marks an event scheduled, cancelled or completed.
func (s *EventService) SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Event, error) {
	return s.setStatus(ctx, actor, id, req, func(_ *models.Event, status string) (models.Fields, error) {
		if !models.EventStatus(status).Valid() {
			return nil, invalidStatus("event", status)
		}
		return models.Fields{"status": status}, nil
	})
}
