package service

import (
	"bitwise74/sketch-api/pkg/security"
	"context"
	"errors"
	"fmt"
	"sync"
)

var errNoLocalPassword = errors.New("account has no local password")

// Authenticator checks email/password pairs against the account store
type Authenticator struct {
	Accounts *Accounts
	Argon    *security.ArgonHash

	dummyOnce sync.Once
	dummy     string
}

func NewAuthenticator(accounts *Accounts, argon *security.ArgonHash) *Authenticator {
	return &Authenticator{
		Accounts: accounts,
		Argon:    argon,
	}
}

// Authenticate returns the identity of the account owning email if password
// matches. Every rejection wraps ErrInvalidCredentials, the joined error
// carries the real reason for logs only
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*security.Identity, error) {
	u, err := a.Accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn the same time a real comparison would take
			a.Argon.VerifyPasswd(password, a.dummyHash())
			return nil, errors.Join(ErrInvalidCredentials, err)
		}

		return nil, err
	}

	if u.PasswordHash == nil || *u.PasswordHash == "" {
		a.Argon.VerifyPasswd(password, a.dummyHash())
		return nil, errors.Join(ErrInvalidCredentials, errNoLocalPassword)
	}

	ok, err := a.Argon.VerifyPasswd(password, *u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	return &security.Identity{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Coins: u.Coins,
	}, nil
}

func (a *Authenticator) dummyHash() string {
	a.dummyOnce.Do(func() {
		a.dummy, _ = a.Argon.GenerateFromPassword("not-a-real-password")
	})

	return a.dummy
}
