// Package rolegate decides what a principal may see: navigation entries, page
// variants and which records a self-service view lists. It is a presentation
// aid; the RBAC middleware and services enforce access on the server.
package rolegate

import "github.com/noah-isme/prefect-api/internal/models"

// Principal is anything that exposes an id and a role set.
type Principal interface {
	UserID() string
	RoleSet() models.RoleSet
}

// Variant names the layout a page renders for a principal.
type Variant string

const (
	VariantManagement  Variant = "management"
	VariantSelfService Variant = "self_service"
)

// IsInRole tests set membership.
func IsInRole(p Principal, role models.UserRole) bool {
	if p == nil {
		return false
	}
	return p.RoleSet().Has(role)
}

// FilterVisible returns records unchanged for admins; otherwise only the ones
// owned by the principal, preserving order.
func FilterVisible[T models.Owned](records []T, p Principal, isAdmin bool) []T {
	if isAdmin {
		return records
	}
	out := make([]T, 0, len(records))
	if p == nil {
		return out
	}
	id := p.UserID()
	for _, r := range records {
		if r.OwnerID() == id {
			out = append(out, r)
		}
	}
	return out
}

// PrimaryRole picks the role shown in the UI: admin, then faculty, prefect, student.
func PrimaryRole(p Principal) models.UserRole {
	if p == nil {
		return ""
	}
	set := p.RoleSet()
	for _, role := range models.AllRoles {
		if set.Has(role) {
			return role
		}
	}
	return ""
}

// Page describes one routed page and who manages it.
type Page struct {
	Key      string
	Managers []models.UserRole
}

// Pages lists every routed page. Managers get the tabbed management variant.
var Pages = []Page{
	{Key: "attendance", Managers: []models.UserRole{models.RoleAdmin, models.RoleFaculty}},
	{Key: "complaints", Managers: []models.UserRole{models.RoleAdmin, models.RoleFaculty}},
	{Key: "incidents", Managers: []models.UserRole{models.RoleAdmin, models.RoleFaculty}},
	{Key: "duties", Managers: []models.UserRole{models.RoleAdmin}},
	{Key: "recruitment", Managers: []models.UserRole{models.RoleAdmin}},
	{Key: "gate_logs", Managers: []models.UserRole{models.RoleAdmin}},
	{Key: "events", Managers: []models.UserRole{models.RoleAdmin, models.RoleFaculty}},
	{Key: "training", Managers: []models.UserRole{models.RoleAdmin, models.RoleFaculty}},
	{Key: "reports", Managers: []models.UserRole{models.RoleAdmin, models.RoleFaculty}},
	{Key: "conversations", Managers: []models.UserRole{models.RoleAdmin}},
	{Key: "users", Managers: []models.UserRole{models.RoleAdmin}},
}

// PageVariant resolves the variant for a page key. Unknown pages render self-service.
func PageVariant(p Principal, page string) Variant {
	for _, pg := range Pages {
		if pg.Key != page {
			continue
		}
		if p != nil && p.RoleSet().HasAny(pg.Managers...) {
			return VariantManagement
		}
		return VariantSelfService
	}
	return VariantSelfService
}

// PageVariants resolves every page for the principal.
func PageVariants(p Principal) map[string]string {
	out := make(map[string]string, len(Pages))
	for _, pg := range Pages {
		out[pg.Key] = string(PageVariant(p, pg.Key))
	}
	return out
}

// IsManager reports whether the principal manages the page, i.e. sees and
// edits every record on it rather than only its own.
func IsManager(p Principal, page string) bool {
	return PageVariant(p, page) == VariantManagement
}
