package service

import (
	"context"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/internal/rolegate"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

// Session is the per-request view of the signed-in principal. Handlers
// receive it explicitly instead of reading ambient state.
type Session interface {
	CurrentUser() *models.User
	Roles() models.RoleSet
	Theme() models.Theme
}

type sessionUserLoader interface {
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

type userSession struct {
	user *models.User
}

func (s userSession) CurrentUser() *models.User { return s.user }
func (s userSession) Roles() models.RoleSet     { return s.user.Roles }
func (s userSession) Theme() models.Theme       { return s.user.Theme }
func (s userSession) UserID() string            { return s.user.ID }
func (s userSession) RoleSet() models.RoleSet   { return s.user.Roles }

// SessionService composes sessions from token claims and the stored user row.
type SessionService struct {
	users sessionUserLoader
}

// NewSessionService constructs a SessionService.
func NewSessionService(users sessionUserLoader) *SessionService {
	return &SessionService{users: users}
}

// Load resolves the session for the token subject. Roles come from the user
// row so grants made after sign-in take effect.
func (s *SessionService) Load(ctx context.Context, claims *models.JWTClaims) (Session, error) {
	if claims == nil || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing session")
	}
	user, err := s.users.CurrentUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return userSession{user: user}, nil
}

// View renders the session with its navigation and page variants.
func (s *SessionService) View(session Session) models.SessionView {
	user := session.CurrentUser()
	principal := userSession{user: user}
	return models.SessionView{
		User:        models.NewUserInfo(user),
		Roles:       session.Roles(),
		PrimaryRole: rolegate.PrimaryRole(principal),
		Theme:       session.Theme(),
		Navigation:  rolegate.VisibleNav(principal),
		Pages:       rolegate.PageVariants(principal),
	}
}
