package auth

import (
	"context"
	"errors"
	"fmt"
)

// LockoutThreshold is the number of consecutive failed logins after which an
// account is locked.  It is deliberately not configurable.
const LockoutThreshold = 5

// CredentialState is the mutable security metadata of an account.
type CredentialState struct {
	FailedAttempts int
	Locked         bool
}

// Account is an identity together with its credential state as loaded from
// the credential store.
type Account struct {
	Identity
	PasswordHash string
	Active       bool
	CredentialState
}

// CredentialStore is the persistence collaborator of the lockout policy.
type CredentialStore interface {
	// FindByEmail returns ErrAccountNotFound when no account has this email.
	FindByEmail(ctx context.Context, email string) (Account, error)
	// RecordFailedAttempt atomically increments the failure counter of the
	// account and sets the lock once the counter reaches threshold.  It
	// returns the state after the update.
	RecordFailedAttempt(ctx context.Context, id int64, threshold int) (CredentialState, error)
	// RecordSuccess resets the failure counter and clears the lock.
	RecordSuccess(ctx context.Context, id int64) error
}

// PasswordVerifier compares a plain password against a stored hash.
type PasswordVerifier interface {
	Verify(hash, plain string) bool
}

// Session is the result of a successful login.
type Session struct {
	Identity Identity
	Token    AccessToken
}

// Authenticator applies the lockout policy to login attempts and issues a
// session token on success.
type Authenticator struct {
	store  CredentialStore
	hasher PasswordVerifier
	codec  *TokenCodec
}

// NewAuthenticator wires the lockout policy to its collaborators.
func NewAuthenticator(store CredentialStore, hasher PasswordVerifier, codec *TokenCodec) *Authenticator {
	if store == nil || hasher == nil || codec == nil {
		panic("nil dependency passed to NewAuthenticator")
	}
	return &Authenticator{store: store, hasher: hasher, codec: codec}
}

// Authenticate checks email and password.  It returns ErrInvalidCredentials
// for unknown, inactive or wrong-password attempts and ErrAccountLocked for
// locked accounts.  A locked account is rejected before its password is
// checked and its counter is left untouched.  Any other error comes from the
// store or the signer and must be treated as internal.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Session, error) {
	acc, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		// Unknown emails look exactly like a wrong password.
		if errors.Is(err, ErrAccountNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("find account: %w", err)
	}
	if !acc.Active {
		return Session{}, ErrInvalidCredentials
	}
	// Locked is decided before the password so a correct guess
	// teaches the caller nothing.
	if acc.Locked {
		return Session{}, ErrAccountLocked
	}

	if !a.hasher.Verify(acc.PasswordHash, password) {
		// The store increments and locks in one statement.
		if _, err := a.store.RecordFailedAttempt(ctx, acc.ID, LockoutThreshold); err != nil {
			return Session{}, fmt.Errorf("record failed attempt: %w", err)
		}
		return Session{}, ErrInvalidCredentials
	}

	if err := a.store.RecordSuccess(ctx, acc.ID); err != nil {
		return Session{}, fmt.Errorf("record successful login: %w", err)
	}
	tok, err := a.codec.Issue(acc.Identity)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Identity: acc.Identity, Token: tok}, nil
}
