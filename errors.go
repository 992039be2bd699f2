package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/credential"
)

var (
	// ErrInvalidName is returned when a name fails validation.
	ErrInvalidName = credential.ErrInvalidName
	// ErrInvalidEmail is returned when an email fails validation. See [credential.Reason].
	ErrInvalidEmail = credential.ErrInvalidEmail
	// ErrWeakPassword is returned when a password violates the policy. See [credential.Violations].
	ErrWeakPassword = credential.ErrWeakPassword
	// ErrInvalidCredentials is the single rejection for unknown email, wrong password,
	// inactive identity, and any rejected access or refresh token.
	ErrInvalidCredentials = credential.ErrInvalidCredentials

	// ErrEmailAlreadyExists is returned when the email is held by another identity.
	// Stores must return it from the atomic insert or update itself.
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrIdentityNotFound is returned for unknown or inactive identities on id lookups.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidRefreshToken is returned by RefreshStore.ConsumeRefreshToken when no
	// record matches. The engine turns it into ErrInvalidCredentials.
	ErrInvalidRefreshToken = errors.New("refresh token not found")

	// ErrHashing is an internal password hashing failure.
	ErrHashing = errors.New("password hashing failed")
	// ErrToken is an internal token signing or generation failure.
	ErrToken = errors.New("token issuance failed")
	// ErrEngineNotReady is returned when the Engine was not built through Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorKind classifies errors returned by Engine for transport mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindNotFound
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// KindOf returns the class of err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrWeakPassword):
		return KindValidation
	case errors.Is(err, ErrEmailAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidRefreshToken):
		return KindInvalidCredentials
	case errors.Is(err, ErrIdentityNotFound):
		return KindNotFound
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
