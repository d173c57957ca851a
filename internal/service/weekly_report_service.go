package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

// WeeklyReportService handles prefects' weekly reports.
type WeeklyReportService struct {
	*resourceService[models.WeeklyReport]
}

// NewWeeklyReportService constructs the weekly report service.
func NewWeeklyReportService(repo resourceRepository[models.WeeklyReport], audit auditWriter, validate *validator.Validate, logger *zap.Logger) *WeeklyReportService {
	return &WeeklyReportService{newResourceService[models.WeeklyReport]("weekly_reports", "weekly report", repo, audit, validate, logger, resourcePolicy{page: "reports"})}
}

// Create drafts a report for the caller.
func (s *WeeklyReportService) Create(ctx context.Context, actor models.Actor, req models.CreateWeeklyReportRequest) (*models.WeeklyReport, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	start, end, err := parseWeek(req.WeekStart, req.WeekEnd)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.WeeklyReportDraft
	}
	if err := s.checkReview(actor, nil, status); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, &models.WeeklyReport{
		PrefectID:  actor.ID,
		WeekStart:  start,
		WeekEnd:    end,
		Summary:    req.Summary,
		Challenges: req.Challenges,
		Plans:      req.Plans,
		Status:     status,
	})
}

// Update edits a report. Feedback is reserved for reviewers.
func (s *WeeklyReportService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateWeeklyReportRequest) (*models.WeeklyReport, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Feedback != nil && !s.isManager(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can leave feedback")
	}
	fields := models.Fields{}
	setIf(fields, "summary", req.Summary)
	setIf(fields, "challenges", req.Challenges)
	setIf(fields, "plans", req.Plans)
	if req.Status != nil {
		if err := s.checkReview(actor, current, *req.Status); err != nil {
			return nil, err
		}
		fields["status"] = *req.Status
	}
	setIf(fields, "feedback", req.Feedback)
	if req.WeekStart != nil || req.WeekEnd != nil {
		start, end := current.WeekStart.Format(dateLayout), current.WeekEnd.Format(dateLayout)
		if req.WeekStart != nil {
			start = *req.WeekStart
		}
		if req.WeekEnd != nil {
			end = *req.WeekEnd
		}
		startDay, endDay, err := parseWeek(start, end)
		if err != nil {
			return nil, err
		}
		fields["week_start"] = startDay
		fields["week_end"] = endDay
	}
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// SetStatus moves a report between draft, submitted and reviewed.
func (s *WeeklyReportService) SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.WeeklyReport, error) {
	return s.setStatus(ctx, actor, id, req, func(current *models.WeeklyReport, status string) (models.Fields, error) {
		if !models.WeeklyReportStatus(status).Valid() {
			return nil, invalidStatus("weekly report", status)
		}
		if err := s.checkReview(actor, current, models.WeeklyReportStatus(status)); err != nil {
			return nil, err
		}
		return models.Fields{"status": status}, nil
	})
}

// checkReview lets owners move a report between draft and submitted. Entering
// or leaving reviewed is reserved for reviewers.
func (s *WeeklyReportService) checkReview(actor models.Actor, current *models.WeeklyReport, next models.WeeklyReportStatus) error {
	if s.isManager(actor) {
		return nil
	}
	if next == models.WeeklyReportReviewed || (current != nil && current.Status == models.WeeklyReportReviewed && next != current.Status) {
		return appErrors.Clone(appErrors.ErrForbidden, "only reviewers can mark a report reviewed")
	}
	return nil
}

func parseWeek(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := parseDate("week_start", rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("week_end", rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "week_end must not be before week_start")
	}
	return start, end, nil
}
