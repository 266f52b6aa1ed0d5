package auth

import (
	"context"
	"errors"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
)

// Guard resolves bearer tokens to users and enforces the active and admin gates.
type Guard struct {
	tokens *TokenService
	users  UserLookup
}

// NewGuard creates a session guard.
func NewGuard(tokens *TokenService, users UserLookup) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// ResolveCurrentUser verifies an access token and loads its subject.
// Any token problem or an unknown subject yields apperr.InvalidCredentials.
func (g *Guard) ResolveCurrentUser(ctx context.Context, accessToken string) (*User, error) {
	return g.resolve(ctx, accessToken, TokenAccess)
}

// RequireActive passes u through unless the account is deactivated.
func RequireActive(u *User) (*User, error) {
	if !u.IsActive {
		return nil, apperr.InactiveUser()
	}
	return u, nil
}

// RequireAdmin passes u through only for administrators.
func RequireAdmin(u *User) (*User, error) {
	if !u.IsAdmin {
		return nil, apperr.Forbidden("")
	}
	return u, nil
}

// Refresh exchanges a refresh token for a new access token.
// The refresh token itself is not rotated; it stays valid until it expires.
func (g *Guard) Refresh(ctx context.Context, refreshToken string) (string, error) {
	user, err := g.resolve(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return "", err
	}
	access, err := g.tokens.Issue(user.Email, TokenAccess)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return access, nil
}

// IssuePair issues the access and refresh tokens returned at login.
func (g *Guard) IssuePair(user *User) (access, refresh string, err error) {
	access, err = g.tokens.Issue(user.Email, TokenAccess)
	if err != nil {
		return "", "", apperr.Internal(err)
	}
	refresh, err = g.tokens.Issue(user.Email, TokenRefresh)
	if err != nil {
		return "", "", apperr.Internal(err)
	}
	return access, refresh, nil
}

func (g *Guard) resolve(ctx context.Context, token string, kind TokenKind) (*User, error) {
	if token == "" {
		return nil, apperr.InvalidCredentials()
	}
	claims, err := g.tokens.Verify(token, kind)
	if err != nil {
		invalid := apperr.InvalidCredentials()
		invalid.Cause = err
		return nil, invalid
	}

	user, err := g.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}
	return user, nil
}
