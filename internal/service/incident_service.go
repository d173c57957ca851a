package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
)

// IncidentService handles incident reports.
type IncidentService struct {
	*resourceService[models.Incident]
}

// NewIncidentService constructs the incident service.
func NewIncidentService(repo resourceRepository[models.Incident], audit auditWriter, validate *validator.Validate, logger *zap.Logger) *IncidentService {
	return &IncidentService{newResourceService[models.Incident]("incidents", "incident", repo, audit, validate, logger, resourcePolicy{page: "incidents"})}
}

// Create reports an incident. It starts open; occurred_at defaults to now.
func (s *IncidentService) Create(ctx context.Context, actor models.Actor, req models.CreateIncidentRequest) (*models.Incident, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	occurred := s.now()
	if req.OccurredAt != nil {
		occurred = req.OccurredAt.UTC()
	}
	return s.create(ctx, actor, &models.Incident{
		ReportedBy:  actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Severity:    req.Severity,
		Status:      models.IncidentStatusOpen,
		OccurredAt:  occurred,
	})
}

// Update edits an incident.
func (s *IncidentService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateIncidentRequest) (*models.Incident, error) {
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
	setIf(fields, "severity", req.Severity)
	setIf(fields, "status", req.Status)
	setIf(fields, "occurred_at", req.OccurredAt)
	setIf(fields, "action_taken", req.ActionTaken)
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// SetStatus moves an incident between open, investigating and closed.
func (s *IncidentService) SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Incident, error) {
	return s.setStatus(ctx, actor, id, req, func(_ *models.Incident, status string) (models.Fields, error) {
		if !models.IncidentStatus(status).Valid() {
			return nil, invalidStatus("incident", status)
		}
		return models.Fields{"status": status}, nil
	})
}
