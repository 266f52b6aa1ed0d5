package auth

import (
	"errors"
	"strings"
	"time"
)

// User is an account that can authenticate against the access-control API.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	IsActive     bool      `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch is a partial update of a user's profile fields.
// A nil field is left unchanged.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	IsActive  *bool
	IsAdmin   *bool
}

// Apply merges the set fields of p into u.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
}

// ChangesPrivileges reports whether the patch touches is_active or is_admin.
func (p UserPatch) ChangesPrivileges() bool {
	return p.IsActive != nil || p.IsAdmin != nil
}

// NormalizeEmail trims and lower-cases an email address.
// Emails are the token subject, so every write and lookup goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	// TokenAccess authorises API calls. Short-lived.
	TokenAccess TokenKind = "access"

	// TokenRefresh can only be exchanged for a new access token.
	TokenRefresh TokenKind = "refresh"
)

// Valid reports whether k is a known token kind.
func (k TokenKind) Valid() bool {
	return k == TokenAccess || k == TokenRefresh
}

// Sentinel errors for token handling. The session guard converts them to
// apperr.InvalidCredentials before they reach the HTTP layer.
var (
	ErrTokenInvalid      = errors.New("invalid token")
	ErrSigningKeyMissing = errors.New("token service has no signing key")
)
