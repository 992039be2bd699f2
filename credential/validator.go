package credential

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

const (
	minNameParts   = 2
	minNamePartLen = 2
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidatedCredentials is registration input that passed every check.
// Password is still plaintext and must be discarded right after hashing.
type ValidatedCredentials struct {
	Name     string
	Email    string
	Password string
}

// ValidatedLogin is login input with a canonical email and a non-empty password.
type ValidatedLogin struct {
	Email    string
	Password string
}

// Validator binds a [PasswordPolicy] to the validation functions.
type Validator struct {
	policy PasswordPolicy
}

// NewValidator returns a Validator for policy, or an error if the policy is unusable.
func NewValidator(policy PasswordPolicy) (*Validator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Validator{policy: policy}, nil
}

// Policy returns the bound policy.
func (v *Validator) Policy() PasswordPolicy {
	return v.policy
}

// Registration validates registration input against the bound policy.
func (v *Validator) Registration(name, email, password string) (ValidatedCredentials, error) {
	return ValidateRegistration(name, email, password, v.policy)
}

// Login validates login input.
func (v *Validator) Login(email, password string) (ValidatedLogin, error) {
	return ValidateLogin(email, password)
}

// ValidateRegistration checks name, then email, then password, and returns the first
// failing field's error. Password failures list every violated rule.
func ValidateRegistration(name, email, password string, policy PasswordPolicy) (ValidatedCredentials, error) {
	normalizedName, err := NormalizeName(name)
	if err != nil {
		return ValidatedCredentials{}, err
	}
	normalizedEmail, err := NormalizeEmail(email)
	if err != nil {
		return ValidatedCredentials{}, err
	}
	if err := ValidatePassword(password, policy); err != nil {
		return ValidatedCredentials{}, err
	}
	return ValidatedCredentials{
		Name:     normalizedName,
		Email:    normalizedEmail,
		Password: password,
	}, nil
}

// ValidateLogin canonicalizes the email and rejects an empty password with
// [ErrInvalidCredentials]. Password correctness is not checked here.
func ValidateLogin(email, password string) (ValidatedLogin, error) {
	normalizedEmail, err := NormalizeEmail(email)
	if err != nil {
		return ValidatedLogin{}, err
	}
	if password == "" {
		return ValidatedLogin{}, oops.Code("INVALID_CREDENTIALS").
			With("reason", "empty password").
			Wrap(ErrInvalidCredentials)
	}
	return ValidatedLogin{Email: normalizedEmail, Password: password}, nil
}

// NormalizeEmail trims and lower-cases email, then checks its shape.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", invalidEmail(ReasonEmpty)
	}
	if !emailPattern.MatchString(normalized) {
		return "", invalidEmail(ReasonNotValid)
	}
	return normalized, nil
}

// NormalizeName trims name and collapses internal whitespace. It requires at least
// two parts of at least two characters each.
func NormalizeName(name string) (string, error) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", oops.Code("INVALID_NAME").With("reason", ReasonEmpty).Wrap(ErrInvalidName)
	}
	if len(parts) < minNameParts {
		return "", oops.Code("INVALID_NAME").
			With("reason", "needs first and last name").
			Wrap(ErrInvalidName)
	}
	for _, part := range parts {
		if utf8.RuneCountInString(part) < minNamePartLen {
			return "", oops.Code("INVALID_NAME").
				With("reason", "name part too short").
				Wrap(ErrInvalidName)
		}
	}
	return strings.Join(parts, " "), nil
}
