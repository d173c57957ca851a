package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/internal/rolegate"
	"github.com/noah-isme/prefect-api/pkg/database"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type resourceRepository[T any] interface {
	List(ctx context.Context, filter models.ListFilter) ([]T, int, error)
	FindByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, rec *T) (*T, error)
	Update(ctx context.Context, id string, fields models.Fields) (*T, error)
	Delete(ctx context.Context, id string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ChangeHook is invoked after a resource write succeeds.
type ChangeHook func(ctx context.Context, resource string)

// resourcePolicy decides who sees and edits rows of a resource.
type resourcePolicy struct {
	// page is the rolegate page whose managers see every row.
	page string
	// publicRead lets everyone list every row.
	publicRead bool
	// statusByManagers restricts status changes to managers.
	statusByManagers bool
}

// resourceService implements list/get/delete and the write plumbing shared by
// every owned resource.
type resourceService[T models.Owned] struct {
	resource  string
	noun      string
	repo      resourceRepository[T]
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	policy    resourcePolicy
	hooks     []ChangeHook
	now       func() time.Time
}

func newResourceService[T models.Owned](resource, noun string, repo resourceRepository[T], audit auditWriter, validate *validator.Validate, logger *zap.Logger, policy resourcePolicy) *resourceService[T] {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resourceService[T]{
		resource:  resource,
		noun:      noun,
		repo:      repo,
		audit:     audit,
		validator: validate,
		logger:    logger.With(zap.String("resource", resource)),
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OnChange registers a hook run after every successful write.
func (s *resourceService[T]) OnChange(hook ChangeHook) {
	s.hooks = append(s.hooks, hook)
}

func (s *resourceService[T]) isManager(actor models.Actor) bool {
	return rolegate.IsManager(actor, s.policy.page)
}

// List returns the rows visible to actor. Non-managers only see their own rows
// unless the resource is public.
func (s *resourceService[T]) List(ctx context.Context, actor models.Actor, filter models.ListFilter) ([]T, *models.Pagination, error) {
	seesAll := s.policy.publicRead || s.isManager(actor)
	if !seesAll {
		filter.OwnerID = actor.ID
	}
	filter.Normalize()

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list %s", s.resource))
	}
	items = rolegate.FilterVisible(items, actor, seesAll)
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one row. Rows the actor may not see are reported as missing.
func (s *resourceService[T]) Get(ctx context.Context, actor models.Actor, id string) (*T, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.publicRead && !s.isManager(actor) && (*rec).OwnerID() != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, s.noun+" not found")
	}
	return rec, nil
}

// Delete permanently removes a row owned by actor, or any row for managers.
func (s *resourceService[T]) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.authorizeWrite(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, s.noun+" not found")
		}
		if database.IsForeignKeyViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, s.noun+" is still referenced")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete "+s.noun)
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, id, nil)
	s.changed(ctx)
	return nil
}

func (s *resourceService[T]) load(ctx context.Context, id string) (*T, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, s.noun+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+s.noun)
	}
	return rec, nil
}

func (s *resourceService[T]) authorizeWrite(ctx context.Context, actor models.Actor, id string) (*T, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.isManager(actor) {
		return rec, nil
	}
	if (*rec).OwnerID() != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only modify your own "+s.resource)
	}
	return rec, nil
}

func (s *resourceService[T]) validate(payload interface{}) error {
	if err := s.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+s.noun+" payload")
	}
	return nil
}

func (s *resourceService[T]) create(ctx context.Context, actor models.Actor, rec *T) (*T, error) {
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		if appErr := constraintError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create "+s.noun)
	}
	s.recordAudit(ctx, actor, models.AuditActionCreate, recordID(created), created)
	s.changed(ctx)
	return created, nil
}

// update applies fields to a row the actor may write. An empty field set
// returns the current row unchanged.
func (s *resourceService[T]) update(ctx context.Context, actor models.Actor, id string, current *T, fields models.Fields, action string) (*T, error) {
	if len(fields) == 0 {
		return current, nil
	}
	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, s.noun+" not found")
		}
		if appErr := constraintError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+s.noun)
	}
	s.recordAudit(ctx, actor, action, id, fields)
	s.changed(ctx)
	return updated, nil
}

// setStatus changes only the status-like fields of a row.
func (s *resourceService[T]) setStatus(ctx context.Context, actor models.Actor, id string, req models.StatusUpdateRequest, fields func(current *T, status string) (models.Fields, error)) (*T, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	var (
		current *T
		err     error
	)
	if s.policy.statusByManagers {
		if !s.isManager(actor) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can change "+s.noun+" status")
		}
		current, err = s.load(ctx, id)
	} else {
		current, err = s.authorizeWrite(ctx, actor, id)
	}
	if err != nil {
		return nil, err
	}
	update, err := fields(current, req.Status)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, actor, id, current, update, models.AuditActionStatusChange)
}

func (s *resourceService[T]) recordAudit(ctx context.Context, actor models.Actor, action, resourceID string, values interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, models.NewAuditLog(actor, action, s.resource, resourceID, values)); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *resourceService[T]) changed(ctx context.Context) {
	for _, hook := range s.hooks {
		hook(ctx, s.resource)
	}
}

func invalidStatus(noun, status string) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid %s status %q", noun, status))
}

func recordID(rec interface{}) string {
	if r, ok := rec.(interface{ RecordID() string }); ok {
		return r.RecordID()
	}
	return ""
}

// constraintError maps a violated table constraint to a client error. It
// returns nil for any other failure.
func constraintError(err error) *appErrors.Error {
	switch {
	case database.IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrRecordExists.Code, appErrors.ErrRecordExists.Status, "record already exists")
	case database.IsForeignKeyViolation(err):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "referenced record does not exist")
	case database.IsCheckViolation(err):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value is not allowed")
	}
	return nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, field+" must be a YYYY-MM-DD date")
	}
	return t, nil
}
