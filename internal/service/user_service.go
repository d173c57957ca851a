package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/database"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/storage"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
	AssignRole(ctx context.Context, userID string, role models.UserRole) error
	RevokeRole(ctx context.Context, userID string, role models.UserRole) error
	UpdateTheme(ctx context.Context, id string, theme models.Theme) error
	UpdateAvatar(ctx context.Context, id string, avatarURL *string) error
}

// UserService handles user management workflows.
type UserService struct {
	repo       userRepository
	audit      auditWriter
	store      blobStore
	avatarSize int
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditWriter, store blobStore, avatarSize int, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, store: store, avatarSize: avatarSize, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions an account. Accounts without roles receive the student role.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	roles := models.RoleSet(req.Roles)
	if len(roles) == 0 {
		roles = models.RoleSet{models.RoleStudent}
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     req.FullName,
		Roles:        roles,
		Active:       true,
		Theme:        models.ThemeSystem,
		PasswordHash: string(passwordHash),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.recordAudit(ctx, actor, models.AuditActionCreate, user.ID, map[string]interface{}{"email": user.Email, "roles": user.Roles})
	return user, nil
}

// Update modifies the user attributes. Nil fields are left untouched.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Active != nil {
		if !*req.Active && id == actor.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
		}
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.recordAudit(ctx, actor, models.AuditActionUpdate, user.ID, req)
	return user, nil
}

// Deactivate disables an account. Users are never physically removed.
func (s *UserService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if id == actor.ID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	s.recordAudit(ctx, actor, models.AuditActionDelete, id, map[string]interface{}{"active": false})
	return nil
}

// AssignRole grants a role to a user.
func (s *UserService) AssignRole(ctx context.Context, actor models.Actor, id string, req models.AssignRoleRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.AssignRole(ctx, id, req.Role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}
	s.recordAudit(ctx, actor, models.AuditActionRoleAssign, id, map[string]interface{}{"role": req.Role})
	return s.Get(ctx, id)
}

// RevokeRole removes a role from a user. Admins cannot drop their own admin role.
func (s *UserService) RevokeRole(ctx context.Context, actor models.Actor, id string, rawRole string) (*models.User, error) {
	role, err := models.ParseRole(rawRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role")
	}
	if id == actor.ID && role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot revoke your own admin role")
	}
	if err := s.repo.RevokeRole(ctx, id, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user does not hold role")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke role")
	}
	s.recordAudit(ctx, actor, models.AuditActionRoleRevoke, id, map[string]interface{}{"role": role})
	return s.Get(ctx, id)
}

// UpdateTheme stores the caller's theme preference.
func (s *UserService) UpdateTheme(ctx context.Context, actor models.Actor, req models.UpdateThemeRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid theme")
	}
	if err := s.repo.UpdateTheme(ctx, actor.ID, req.Theme); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update theme")
	}
	return s.Get(ctx, actor.ID)
}

// UploadAvatar replaces the caller's avatar with a normalised square PNG.
func (s *UserService) UploadAvatar(ctx context.Context, actor models.Actor, file io.Reader) (*models.User, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "avatar storage not configured")
	}
	data, err := storage.NormalizeAvatar(file, s.avatarSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "avatar must be a PNG, JPEG or GIF image")
	}
	key := avatarKey(actor.ID)
	if _, err := s.store.Save(key, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}
	url := s.store.PublicURL(key)
	if err := s.repo.UpdateAvatar(ctx, actor.ID, &url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update avatar")
	}
	return s.Get(ctx, actor.ID)
}

// DeleteAvatar removes the caller's avatar blob and clears the URL.
func (s *UserService) DeleteAvatar(ctx context.Context, actor models.Actor) (*models.User, error) {
	if s.store != nil {
		if err := s.store.Delete(avatarKey(actor.ID)); err != nil {
			s.logger.Warn("failed to delete avatar blob", zap.String("user_id", actor.ID), zap.Error(err))
		}
	}
	if err := s.repo.UpdateAvatar(ctx, actor.ID, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear avatar")
	}
	return s.Get(ctx, actor.ID)
}

func (s *UserService) recordAudit(ctx context.Context, actor models.Actor, action, userID string, values interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, models.NewAuditLog(actor, action, "users", userID, values)); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

func avatarKey(userID string) string {
	return "avatars/" + userID + ".png"
}
