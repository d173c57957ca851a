package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignUpRequest registers a new account. New accounts receive the student role.
type SignUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FullName  string `json:"full_name" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// SignOutRequest optionally names the refresh token to revoke.
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Roles     RoleSet `json:"roles"`
	Theme     Theme   `json:"theme"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// NewUserInfo projects a user row into its public shape.
func NewUserInfo(user *User) UserInfo {
	return UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Roles:     user.Roles,
		Theme:     user.Theme,
		AvatarURL: user.AvatarURL,
	}
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string  `json:"user_id"`
	Roles    RoleSet `json:"roles"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor returns the principal described by the token.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.UserID, Roles: c.Roles}
}

// HasRole reports whether the token carries the role.
func (c *JWTClaims) HasRole(role UserRole) bool {
	return c != nil && c.Roles.Has(role)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID        string
	Roles     RoleSet
	IP        string
	UserAgent string
}

// UserID returns the caller id.
func (a Actor) UserID() string { return a.ID }

// RoleSet returns the caller's roles.
func (a Actor) RoleSet() RoleSet { return a.Roles }
