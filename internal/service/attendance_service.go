package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

type attendanceRepository interface {
	resourceRepository[models.Attendance]
	ExistsForDate(ctx context.Context, prefectID string, date time.Time) (bool, error)
}

// AttendanceService records daily prefect attendance.
type AttendanceService struct {
	*resourceService[models.Attendance]
	attendance attendanceRepository
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{
		resourceService: newResourceService[models.Attendance]("attendance", "attendance record", repo, audit, validate, logger, resourcePolicy{page: "attendance"}),
		attendance:      repo,
	}
}

// Create records attendance for the caller, or for any prefect when the caller
// manages attendance. A second record for the same prefect and day is rejected.
func (s *AttendanceService) Create(ctx context.Context, actor models.Actor, req models.CreateAttendanceRequest) (*models.Attendance, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	prefectID := req.PrefectID
	if prefectID == "" {
		prefectID = actor.ID
	}
	if prefectID != actor.ID && !s.isManager(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only record your own attendance")
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	exists, err := s.attendance.ExistsForDate(ctx, prefectID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing attendance")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrRecordExists, "record already exists")
	}

	recordedBy := actor.ID
	return s.create(ctx, actor, &models.Attendance{
		PrefectID:  prefectID,
		Date:       date,
		Status:     req.Status,
		CheckInAt:  req.CheckInAt,
		Remarks:    req.Remarks,
		RecordedBy: &recordedBy,
	})
}

// Update edits an attendance record.
func (s *AttendanceService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateAttendanceRequest) (*models.Attendance, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	current, err := s.authorizeWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := models.Fields{}
	setIf(fields, "status", req.Status)
	setIf(fields, "check_in_at", req.CheckInAt)
	setIf(fields, "remarks", req.Remarks)
	return s.update(ctx, actor, id, current, fields, models.AuditActionUpdate)
}

// SetStatus marks a record present, absent or late.
func (s *AttendanceService) SetStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest) (*models.Attendance, error) {
	return s.setStatus(ctx, actor, id, req, func(_ *models.Attendance, status string) (models.Fields, error) {
		if !models.AttendanceStatus(status).Valid() {
			return nil, invalidStatus("attendance", status)
		}
		return models.Fields{"status": status}, nil
	})
}

func setIf[V any](fields models.Fields, column string, v *V) {
	if v != nil {
		fields[column] = *v
	}
}
