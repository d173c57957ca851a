package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

// ComplaintService handles complaints raised by any member.
type ComplaintService struct {
	*resourceService[models.Complaint]
}

// NewComplaintService constructs the complaint service.
func NewComplaintService(repo resourceRepository[models.Complaint], audit auditWriter, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	policy := resourcePolicy{page: "complaints", statusByManagers: true}
	return &ComplaintService{newResourceService[models.Complaint]("complaints", "complaint", repo, audit, validate, logger, policy)}
}

// Create files a complaint for the caller. Status defaults to pending; only
// reviewers may file one in another state.
func (s *ComplaintService) Create(ctx context.Context, actor models.Actor, req models.CreateComplaintRequest) (*models.Complaint, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.ComplaintStatusPending
	}
	if status != models.ComplaintStatusPending && !s.isManager(actor) {
		return nil, errComplaintReview
	}
	complaint := &models.Complaint{
		SubmittedBy: actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      status,
	}
	if status == models.ComplaintStatusResolved {
		now := s.now()
		complaint.ResolvedAt = &now
	}
	return s.create(ctx, actor, complaint)
}

// Update edits a complaint. Status and response belong to reviewers.
func (s *ComplaintService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateComplaintRequest) (*models.Complaint, error) {
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
	setIf(fields, "category", req.Category)
	if req.Status != nil || req.Response != nil {
		if !s.isManager(actor) {
			return nil, errComplaintReview
		}
		setIf(fields, "response", req.Response)
		if req.Status != nil {
			s.statusFields(fields, current, *req.Status)
		}
	}
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// SetStatus moves a complaint to any state. Only reviewers may call it.
func (s *ComplaintService) SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Complaint, error) {
	return s.setStatus(ctx, actor, id, req, func(current *models.Complaint, status string) (models.Fields, error) {
		if !models.ComplaintStatus(status).Valid() {
			return nil, invalidStatus("complaint", status)
		}
		fields := models.Fields{}
		s.statusFields(fields, current, models.ComplaintStatus(status))
		return fields, nil
	})
}

var errComplaintReview = appErrors.Clone(appErrors.ErrForbidden, "only reviewers can change complaint status")

// statusFields stamps resolved_at on entering resolved and clears it on leaving.
func (s *ComplaintService) statusFields(fields models.Fields, current *models.Complaint, status models.ComplaintStatus) {
	fields["status"] = status
	switch {
	case status == models.ComplaintStatusResolved && current.Status != models.ComplaintStatusResolved:
		fields["resolved_at"] = s.now()
	case status != models.ComplaintStatusResolved && current.ResolvedAt != nil:
		fields["resolved_at"] = (*time.Time)(nil)
	}
}
