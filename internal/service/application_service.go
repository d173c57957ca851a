package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

// ApplicationService handles prefect recruitment applications.
type ApplicationService struct {
	*resourceService[models.Application]
}

// NewApplicationService constructs the recruitment service.
func NewApplicationService(repo resourceRepository[models.Application], audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	policy := resourcePolicy{page: "recruitment", statusByManagers: true}
	return &ApplicationService{newResourceService[models.Application]("applications", "application", repo, audit, validate, logger, policy)}
}

// Create submits an application for the caller.
func (s *ApplicationService) Create(ctx context.Context, actor models.Actor, req models.CreateApplicationRequest) (*models.Application, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, &models.Application{
		ApplicantID: actor.ID,
		Position:    req.Position,
		Motivation:  req.Motivation,
		Experience:  req.Experience,
		Status:      models.ApplicationStatusPending,
	})
}

// Update lets applicants edit their answers and reviewers record a decision.
func (s *ApplicationService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateApplicationRequest) (*models.Application, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := models.Fields{}
	setIf(fields, "position", req.Position)
	setIf(fields, "motivation", req.Motivation)
	setIf(fields, "experience", req.Experience)
	if req.Status != nil || req.ReviewNotes != nil {
		if !s.isManager(actor) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can change application status")
		}
		setIf(fields, "review_notes", req.ReviewNotes)
		if req.Status != nil {
			s.reviewFields(fields, actor, *req.Status)
		}
	}
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// SetStatus records a review decision. Only reviewers may call it.
func (s *ApplicationService) SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Application, error) {
	return s.setStatus(ctx, actor, id, req, func(_ *models.Application, status string) (models.Fields, error) {
		if !models.ApplicationStatus(status).Valid() {
			return nil, invalidStatus("application", status)
		}
		fields := models.Fields{}
		s.reviewFields(fields, actor, models.ApplicationStatus(status))
		return fields, nil
	})
}

// reviewFields stamps the reviewer whenever an application leaves pending.
func (s *ApplicationService) reviewFields(fields models.Fields, actor models.Actor, status models.ApplicationStatus) {
	fields["status"] = status
	if status != models.ApplicationStatusPending {
		fields["reviewed_by"] = actor.ID
		fields["reviewed_at"] = s.now()
	}
}
