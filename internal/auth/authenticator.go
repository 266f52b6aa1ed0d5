package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/nerrad567/gray-logic-access/internal/apperr"
)

// UserLookup resolves a user by email.
// Implementations return an error matching apperr.ErrNotFound when no user has the email.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Authenticator checks email and password credentials.
type Authenticator struct {
	users UserLookup

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator creates an authenticator backed by the given credential store.
func NewAuthenticator(users UserLookup) *Authenticator {
	return &Authenticator{users: users}
}

// Authenticate returns the user whose email and password match.
//
// An unknown email and a wrong password both yield apperr.IncorrectLoginData.
// For an unknown email a throwaway hash is still verified so response timing
// does not reveal whether the account exists. Inactive users authenticate
// successfully; the session guard rejects them afterwards.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := a.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			VerifyPassword(password, a.dummy())
			return nil, apperr.IncorrectLoginData()
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, apperr.IncorrectLoginData()
	}
	return user, nil
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = HashPassword("timing-equaliser") //nolint:errcheck // empty hash simply never verifies
	})
	return a.dummyHash
}
