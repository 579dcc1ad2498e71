package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so callers cannot tell which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned for any login attempt against an account
	// whose failure counter reached LockoutThreshold.
	ErrAccountLocked = errors.New("account locked")

	// ErrInvalidToken wraps every token verification failure.  The wrapped
	// message carries the reason for server-side logs only.
	ErrInvalidToken = errors.New("invalid token")

	// ErrAccountNotFound is returned by a CredentialStore when no account
	// matches the lookup key.
	ErrAccountNotFound = errors.New("account not found")
)

func invalidToken(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidToken, reason)
}
