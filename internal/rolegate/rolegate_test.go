package rolegate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/prefect-api/internal/models"
)

type principal struct {
	id    string
	roles models.RoleSet
}

func (p principal) UserID() string          { return p.id }
func (p principal) RoleSet() models.RoleSet { return p.roles }

func TestIsInRoleUsesSetMembership(t *testing.T) {
	p := principal{id: "u1", roles: models.RoleSet{models.RolePrefect, models.RoleStudent}}
	assert.True(t, IsInRole(p, models.RoleStudent))
	assert.True(t, IsInRole(p, models.RolePrefect))
	assert.False(t, IsInRole(p, models.RoleAdmin))
	assert.False(t, IsInRole(nil, models.RoleAdmin))
}

func TestFilterVisible(t *testing.T) {
	records := []models.Complaint{
		{Record: models.Record{ID: "c1"}, SubmittedBy: "u1"},
		{Record: models.Record{ID: "c2"}, SubmittedBy: "u2"},
		{Record: models.Record{ID: "c3"}, SubmittedBy: "u1"},
	}
	user := principal{id: "u1", roles: models.RoleSet{models.RoleStudent}}

	own := FilterVisible(records, user, false)
	assert.Equal(t, []string{"c1", "c3"}, []string{own[0].ID, own[1].ID})
	assert.Len(t, own, 2)

	all := FilterVisible(records, user, true)
	assert.Equal(t, records, all)

	assert.Empty(t, FilterVisible(records, nil, false))
}

func TestVisibleNavForStudent(t *testing.T) {
	student := principal{id: "s1", roles: models.RoleSet{models.RoleStudent}}
	entries := VisibleNav(student)
	for _, e := range entries {
		assert.Contains(t, e.AllowedRoles, models.RoleStudent)
		assert.NotEqual(t, "User Management", e.Title)
	}
	keys := make(map[string]bool)
	for _, e := range entries {
		keys[e.Key] = true
	}
	for _, e := range Navigation {
		allowed := false
		for _, r := range e.AllowedRoles {
			if r == models.RoleStudent {
				allowed = true
			}
		}
		assert.Equal(t, allowed, keys[e.Key], e.Key)
	}
}

func TestVisibleNavForAdminIncludesUserManagement(t *testing.T) {
	admin := principal{id: "a1", roles: models.RoleSet{models.RoleAdmin}}
	entries := VisibleNav(admin)
	assert.Len(t, entries, len(Navigation))
	assert.Equal(t, "User Management", entries[len(entries)-1].Title)
}

func TestDashboardNavMatchesReviewerRoute(t *testing.T) {
	assert.ElementsMatch(t, []models.UserRole{models.RoleAdmin, models.RoleFaculty}, NavRoles("dashboard"))
	assert.Nil(t, NavRoles("nowhere"))

	for _, roles := range []models.RoleSet{{models.RoleStudent}, {models.RolePrefect}} {
		for _, e := range VisibleNav(principal{id: "u1", roles: roles}) {
			assert.NotEqual(t, "dashboard", e.Key, roles)
		}
	}
	faculty := principal{id: "f1", roles: models.RoleSet{models.RoleFaculty}}
	assert.Equal(t, "dashboard", VisibleNav(faculty)[0].Key)
}

func TestPrimaryRoleAndPageVariant(t *testing.T) {
	multi := principal{id: "u1", roles: models.RoleSet{models.RoleStudent, models.RoleFaculty, models.RolePrefect}}
	assert.Equal(t, models.RoleFaculty, PrimaryRole(multi))
	assert.Equal(t, VariantManagement, PageVariant(multi, "complaints"))
	assert.Equal(t, VariantSelfService, PageVariant(multi, "duties"))
	assert.Equal(t, VariantSelfService, PageVariant(multi, "unknown"))

	variants := PageVariants(principal{id: "a", roles: models.RoleSet{models.RoleAdmin}})
	assert.Equal(t, "management", variants["users"])
	assert.Equal(t, models.UserRole(""), PrimaryRole(principal{}))
}
