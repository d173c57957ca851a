package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

type fakeSessionUsers map[string]*models.User

func (f fakeSessionUsers) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	if u, ok := f[userID]; ok {
		return u, nil
	}
	return nil, appErrors.Wrap(sql.ErrNoRows, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "account no longer exists")
}

func TestSessionLoadUsesStoredRoles(t *testing.T) {
	users := fakeSessionUsers{"u1": {ID: "u1", Email: "u1@school.test", Roles: models.RoleSet{models.RoleStudent, models.RolePrefect}, Theme: models.ThemeDark}}
	svc := NewSessionService(users)

	claims := &models.JWTClaims{UserID: "u1", Roles: models.RoleSet{models.RoleStudent}}
	session, err := svc.Load(context.Background(), claims)
	require.NoError(t, err)
	assert.True(t, session.Roles().Has(models.RolePrefect))
	assert.Equal(t, models.ThemeDark, session.Theme())
	assert.Equal(t, "u1", session.CurrentUser().ID)

	view := svc.View(session)
	assert.Equal(t, models.RolePrefect, view.PrimaryRole)
	assert.Equal(t, "self_service", view.Pages["duties"])
	keys := make([]string, 0, len(view.Navigation))
	for _, entry := range view.Navigation {
		keys = append(keys, entry.Key)
	}
	assert.Contains(t, keys, "duties")
	assert.NotContains(t, keys, "users")
}

func TestSessionViewForAdmin(t *testing.T) {
	users := fakeSessionUsers{"a1": {ID: "a1", Roles: models.RoleSet{models.RoleAdmin}, Theme: models.ThemeSystem}}
	svc := NewSessionService(users)

	session, err := svc.Load(context.Background(), &models.JWTClaims{UserID: "a1"})
	require.NoError(t, err)
	view := svc.View(session)
	assert.Equal(t, models.RoleAdmin, view.PrimaryRole)
	assert.Equal(t, "management", view.Pages["users"])
	assert.Equal(t, "User Management", view.Navigation[len(view.Navigation)-1].Title)
}

func TestSessionLoadRejectsMissingSubject(t *testing.T) {
	svc := NewSessionService(fakeSessionUsers{})

	_, err := svc.Load(context.Background(), nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Load(context.Background(), &models.JWTClaims{UserID: "ghost"})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
