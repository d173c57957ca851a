package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// UserRole represents one of the fixed roles a user may hold.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleFaculty UserRole = "faculty"
	RolePrefect UserRole = "prefect"
	RoleStudent UserRole = "student"
)

// AllRoles lists every assignable role in display precedence order.
var AllRoles = []UserRole{RoleAdmin, RoleFaculty, RolePrefect, RoleStudent}

// Valid reports whether the role belongs to the closed role set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RolePrefect, RoleStudent:
		return true
	default:
		return false
	}
}

// ParseRole converts raw input into a UserRole, rejecting unknown values.
func ParseRole(raw string) (UserRole, error) {
	role := UserRole(raw)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// RoleSet is the many-to-many role assignment of a single user. It scans from
// a Postgres text array.
type RoleSet []UserRole

// Has reports membership.
func (s RoleSet) Has(role UserRole) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// HasAny reports whether the set intersects the given roles.
func (s RoleSet) HasAny(roles ...UserRole) bool {
	for _, role := range roles {
		if s.Has(role) {
			return true
		}
	}
	return false
}

// Strings returns the raw role names.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// Scan implements sql.Scanner.
func (s *RoleSet) Scan(value interface{}) error {
	var raw pq.StringArray
	if err := raw.Scan(value); err != nil {
		return fmt.Errorf("scan role set: %w", err)
	}
	set := make(RoleSet, 0, len(raw))
	for _, r := range raw {
		set = append(set, UserRole(r))
	}
	*s = set
	return nil
}

// Value implements driver.Valuer.
func (s RoleSet) Value() (driver.Value, error) {
	return pq.StringArray(s.Strings()).Value()
}

// Theme is the persisted UI theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Valid reports whether the theme is supported.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Roles        RoleSet    `db:"roles" json:"roles"`
	Active       bool       `db:"active" json:"active"`
	Theme        Theme      `db:"theme" json:"theme"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// CreateUserRequest is the admin payload for provisioning accounts.
type CreateUserRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	FullName string     `json:"full_name" validate:"required"`
	Roles    []UserRole `json:"roles" validate:"omitempty,dive,oneof=admin faculty prefect student"`
}

// UpdateUserRequest carries admin edits; nil fields are left untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Active   *bool   `json:"active"`
}

// AssignRoleRequest grants a role.
type AssignRoleRequest struct {
	Role UserRole `json:"role" validate:"required,oneof=admin faculty prefect student"`
}

// UpdateThemeRequest stores a theme preference.
type UpdateThemeRequest struct {
	Theme Theme `json:"theme" validate:"required,oneof=light dark system"`
}
