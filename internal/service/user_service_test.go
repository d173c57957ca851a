package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	listCalls []models.UserFilter
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.listCalls = append(m.listCalls, filter)
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = false
	return nil
}

func (m *mockUserRepo) AssignRole(ctx context.Context, userID string, role models.UserRole) error {
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	if !u.Roles.Has(role) {
		u.Roles = append(u.Roles, role)
	}
	return nil
}

func (m *mockUserRepo) RevokeRole(ctx context.Context, userID string, role models.UserRole) error {
	u, ok := m.users[userID]
	if !ok || !u.Roles.Has(role) {
		return sql.ErrNoRows
	}
	kept := models.RoleSet{}
	for _, r := range u.Roles {
		if r != role {
			kept = append(kept, r)
		}
	}
	u.Roles = kept
	return nil
}

func (m *mockUserRepo) UpdateTheme(ctx context.Context, id string, theme models.Theme) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Theme = theme
	return nil
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id string, avatarURL *string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.AvatarURL = avatarURL
	return nil
}

func seededUsers() *mockUserRepo {
	return newMockUserRepo(
		&models.User{ID: "admin-1", Email: "admin@school.test", Roles: models.RoleSet{models.RoleAdmin}, Active: true, Theme: models.ThemeSystem},
		&models.User{ID: "stu-1", Email: "stu@school.test", Roles: models.RoleSet{models.RoleStudent}, Active: true, Theme: models.ThemeSystem},
	)
}

func TestUserServiceListDefaultsPaging(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, nil, nil, 64, nil, nil)

	users, page, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 2, page.TotalCount)
}

func TestUserServiceCreate(t *testing.T) {
	repo := seededUsers()
	audit := &fakeAudit{}
	svc := NewUserService(repo, audit, nil, 64, nil, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, admin("admin-1"), models.CreateUserRequest{Email: "NEW@school.test", Password: "secret1", FullName: "New"})
	require.NoError(t, err)
	assert.Equal(t, "new@school.test", user.Email)
	assert.Equal(t, models.RoleSet{models.RoleStudent}, user.Roles)
	assert.True(t, user.Active)
	assert.Equal(t, []string{models.AuditActionCreate}, audit.actions())

	_, err = svc.Create(ctx, admin("admin-1"), models.CreateUserRequest{Email: "stu@school.test", Password: "secret1", FullName: "Dup"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(ctx, admin("admin-1"), models.CreateUserRequest{Email: "x@school.test", Password: "secret1", FullName: "X", Roles: []models.UserRole{"janitor"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceCannotDeactivateSelf(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, nil, nil, 64, nil, nil)
	ctx := context.Background()
	inactive := false

	_, err := svc.Update(ctx, admin("admin-1"), "admin-1", models.UpdateUserRequest{Active: &inactive})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	err = svc.Deactivate(ctx, admin("admin-1"), "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	require.NoError(t, svc.Deactivate(ctx, admin("admin-1"), "stu-1"))
	assert.False(t, repo.users["stu-1"].Active)

	err = svc.Deactivate(ctx, admin("admin-1"), "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceRoles(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, nil, nil, 64, nil, nil)
	ctx := context.Background()

	user, err := svc.AssignRole(ctx, admin("admin-1"), "stu-1", models.AssignRoleRequest{Role: models.RolePrefect})
	require.NoError(t, err)
	assert.True(t, user.Roles.Has(models.RolePrefect))
	assert.True(t, user.Roles.Has(models.RoleStudent))

	user, err = svc.RevokeRole(ctx, admin("admin-1"), "stu-1", "prefect")
	require.NoError(t, err)
	assert.False(t, user.Roles.Has(models.RolePrefect))

	_, err = svc.RevokeRole(ctx, admin("admin-1"), "stu-1", "prefect")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.RevokeRole(ctx, admin("admin-1"), "admin-1", "admin")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.RevokeRole(ctx, admin("admin-1"), "stu-1", "overlord")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.AssignRole(ctx, admin("admin-1"), "ghost", models.AssignRoleRequest{Role: models.RoleFaculty})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceUpdateTheme(t *testing.T) {
	repo := seededUsers()
	svc := NewUserService(repo, nil, nil, 64, nil, nil)

	user, err := svc.UpdateTheme(context.Background(), student("stu-1"), models.UpdateThemeRequest{Theme: models.ThemeDark})
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, user.Theme)

	_, err = svc.UpdateTheme(context.Background(), student("stu-1"), models.UpdateThemeRequest{Theme: "neon"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceAvatarLifecycle(t *testing.T) {
	repo := seededUsers()
	store := newFakeBlobStore()
	svc := NewUserService(repo, nil, store, 32, nil, nil)
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	user, err := svc.UploadAvatar(ctx, student("stu-1"), &buf)
	require.NoError(t, err)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, "http://files.test/avatars/stu-1.png", *user.AvatarURL)

	stored, _, err := image.Decode(bytes.NewReader(store.blobs["avatars/stu-1.png"]))
	require.NoError(t, err)
	assert.Equal(t, 32, stored.Bounds().Dx())
	assert.Equal(t, 32, stored.Bounds().Dy())

	_, err = svc.UploadAvatar(ctx, student("stu-1"), bytes.NewReader([]byte("not an image")))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	user, err = svc.DeleteAvatar(ctx, student("stu-1"))
	require.NoError(t, err)
	assert.Nil(t, user.AvatarURL)
	assert.Contains(t, store.deleted, "avatars/stu-1.png")
}
