package models

// NavEntry is one sidebar entry and the roles allowed to see it.
type NavEntry struct {
	Key          string     `json:"key"`
	Title        string     `json:"title"`
	Path         string     `json:"path"`
	AllowedRoles []UserRole `json:"-"`
}

// SessionView is the composed session returned to clients.
type SessionView struct {
	User        UserInfo          `json:"user"`
	Roles       RoleSet           `json:"roles"`
	PrimaryRole UserRole          `json:"primary_role"`
	Theme       Theme             `json:"theme"`
	Navigation  []NavEntry        `json:"navigation"`
	Pages       map[string]string `json:"pages"`
}
