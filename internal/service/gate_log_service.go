package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
)

// GateLogService records gate crossings.
type GateLogService struct {
	*resourceService[models.GateLog]
}

// NewGateLogService constructs the gate log service.
func NewGateLogService(repo resourceRepository[models.GateLog], audit auditWriter, validate *validator.Validate, logger *zap.Logger) *GateLogService {
	return &GateLogService{newResourceService[models.GateLog]("gate_logs", "gate log", repo, audit, validate, logger, resourcePolicy{page: "gate_logs"})}
}

// Create records a crossing; logged_at defaults to now.
func (s *GateLogService) Create(ctx context.Context, actor models.Actor, req models.CreateGateLogRequest) (*models.GateLog, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	loggedAt := s.now()
	if req.LoggedAt != nil {
		loggedAt = req.LoggedAt.UTC()
	}
	return s.create(ctx, actor, &models.GateLog{
		RecordedBy: actor.ID,
		PersonName: req.PersonName,
		Purpose:    req.Purpose,
		Direction:  req.Direction,
		LoggedAt:   loggedAt,
		Notes:      req.Notes,
	})
}

// Update edits a crossing.
func (s *GateLogService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateGateLogRequest) (*models.GateLog, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := models.Fields{}
	setIf(fields, "person_name", req.PersonName)
	setIf(fields, "purpose", req.Purpose)
	setIf(fields, "direction", req.Direction)
	setIf(fields, "logged_at", req.LoggedAt)
	setIf(fields, "notes", req.Notes)
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}
