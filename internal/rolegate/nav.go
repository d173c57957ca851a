package rolegate

import "github.com/noah-isme/prefect-api/internal/models"

var (
	everyone   = []models.UserRole{models.RoleAdmin, models.RoleFaculty, models.RolePrefect, models.RoleStudent}
	staff      = []models.UserRole{models.RoleAdmin, models.RoleFaculty, models.RolePrefect}
	prefects   = []models.UserRole{models.RoleAdmin, models.RolePrefect}
	reviewers  = []models.UserRole{models.RoleAdmin, models.RoleFaculty}
	adminsOnly = []models.UserRole{models.RoleAdmin}
)

// Navigation is the sidebar catalog in display order.
var Navigation = []models.NavEntry{
	{Key: "dashboard", Title: "Dashboard", Path: "/dashboard", AllowedRoles: reviewers},
	{Key: "attendance", Title: "Attendance", Path: "/attendance", AllowedRoles: staff},
	{Key: "duties", Title: "Duties", Path: "/duties", AllowedRoles: prefects},
	{Key: "complaints", Title: "Complaints", Path: "/complaints", AllowedRoles: everyone},
	{Key: "incidents", Title: "Incidents", Path: "/incidents", AllowedRoles: staff},
	{Key: "gate_logs", Title: "Gate Logs", Path: "/gate-logs", AllowedRoles: prefects},
	{Key: "events", Title: "Events", Path: "/events", AllowedRoles: everyone},
	{Key: "training", Title: "Training", Path: "/training", AllowedRoles: staff},
	{Key: "reports", Title: "Weekly Reports", Path: "/reports", AllowedRoles: staff},
	{Key: "recruitment", Title: "Recruitment", Path: "/recruitment", AllowedRoles: everyone},
	{Key: "conversations", Title: "Conversations", Path: "/conversations", AllowedRoles: everyone},
	{Key: "users", Title: "User Management", Path: "/users", AllowedRoles: adminsOnly},
}

// VisibleNav returns the entries whose allowed roles intersect the principal's roles.
func VisibleNav(p Principal) []models.NavEntry {
	out := make([]models.NavEntry, 0, len(Navigation))
	if p == nil {
		return out
	}
	set := p.RoleSet()
	for _, entry := range Navigation {
		if set.HasAny(entry.AllowedRoles...) {
			out = append(out, entry)
		}
	}
	return out
}

// NavRoles returns the roles allowed to open the entry with key, or nil for
// an unknown key.
func NavRoles(key string) []models.UserRole {
	for _, entry := range Navigation {
		if entry.Key == key {
			out := make([]models.UserRole, len(entry.AllowedRoles))
			copy(out, entry.AllowedRoles)
			return out
		}
	}
	return nil
}
