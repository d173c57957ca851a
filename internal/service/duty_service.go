package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

// DutyService assigns duty posts to prefects.
type DutyService struct {
	*resourceService[models.Duty]
}

// NewDutyService constructs the duty service.
func NewDutyService(repo resourceRepository[models.Duty], audit auditWriter, validate *validator.Validate, logger *zap.Logger) *DutyService {
	return &DutyService{newResourceService[models.Duty]("duties", "duty", repo, audit, validate, logger, resourcePolicy{page: "duties"})}
}

// Create assigns a duty. Only duty managers may assign.
func (s *DutyService) Create(ctx context.Context, actor models.Actor, req models.CreateDutyRequest) (*models.Duty, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if !s.isManager(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can assign duties")
	}
	day, err := parseDate("duty_date", req.DutyDate)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(req.StartAt, req.EndAt); err != nil {
		return nil, err
	}
	assignedBy := actor.ID
	return s.create(ctx, actor, &models.Duty{
		PrefectID:  req.PrefectID,
		Title:      req.Title,
		Location:   req.Location,
		DutyDate:   day,
		StartAt:    req.StartAt.UTC(),
		EndAt:      req.EndAt.UTC(),
		Status:     models.DutyStatusAssigned,
		Notes:      req.Notes,
		AssignedBy: &assignedBy,
	})
}

// Update edits a duty. The merged window must still end after it starts.
func (s *DutyService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateDutyRequest) (*models.Duty, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := models.Fields{}
	setIf(fields, "title", req.Title)
	setIf(fields, "location", req.Location)
	setIf(fields, "status", req.Status)
	setIf(fields, "notes", req.Notes)
	if req.DutyDate != nil {
		day, err := parseDate("duty_date", *req.DutyDate)
		if err != nil {
			return nil, err
		}
		fields["duty_date"] = day
	}
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

// SetStatus marks a duty assigned, completed or missed.
func (s *DutyService) SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Duty, error) {
	return s.setStatus(ctx, actor, id, req, func(_ *models.Duty, status string) (models.Fields, error) {
		if !models.DutyStatus(status).Valid() {
			return nil, invalidStatus("duty", status)
		}
		return models.Fields{"status": status}, nil
	})
}

func checkWindow(start, end time.Time) error {
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_at must be after start_at")
	}
	return nil
}
