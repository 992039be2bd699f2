package credential

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// ErrInvalidName is returned when a name is empty, has fewer than two parts,
	// or has a part shorter than two characters.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidEmail is returned when an email is empty or malformed. See [Reason].
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWeakPassword is returned when a password violates the active policy. See [Violations].
	ErrWeakPassword = errors.New("weak password")
	// ErrInvalidCredentials is returned by login validation for an empty password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Email rejection reasons.
const (
	ReasonEmpty    = "empty"
	ReasonNotValid = "not valid"
)

// Reason returns the rejection reason attached to an [ErrInvalidEmail] error,
// or "" when err carries none.
func Reason(err error) string {
	reason, _ := contextValue(err, "reason").(string)
	return reason
}

// Violations returns the policy rules a rejected password broke, in evaluation order.
func Violations(err error) []string {
	rules, _ := contextValue(err, "violations").([]string)
	if len(rules) == 0 {
		return nil
	}
	out := make([]string, len(rules))
	copy(out, rules)
	return out
}

func contextValue(err error, key string) any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()[key]
}

func invalidEmail(reason string) error {
	return oops.Code("INVALID_EMAIL").With("reason", reason).Wrap(ErrInvalidEmail)
}
