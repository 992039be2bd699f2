package credential

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// DefaultSpecialChars is the character set that counts toward the special-character rule.
const DefaultSpecialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// Policy rule identifiers, listed in evaluation order.
const (
	RuleMinLength = "min_length"
	RuleUppercase = "uppercase"
	RuleLowercase = "lowercase"
	RuleDigit     = "digit"
	RuleSpecial   = "special"
	RuleForbidden = "forbidden"
	// RuleMaxLength is reported when the hasher refuses an over-long password.
	RuleMaxLength = "max_length"
)

// PasswordPolicy describes the composition rules a registration password must satisfy.
//
// Length is counted in characters (runes), not bytes.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
	SpecialChars   string
	Forbidden      string
}

// DefaultPolicy returns the fixed default: at least 8 characters, one uppercase letter,
// one digit, and no whitespace.
func DefaultPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   false,
		RequireDigit:   true,
		RequireSpecial: false,
		SpecialChars:   DefaultSpecialChars,
		Forbidden:      " \t\n",
	}
}

// Validate reports whether the policy itself is usable.
func (p PasswordPolicy) Validate() error {
	if p.MinLength < 1 {
		return errors.New("password policy MinLength must be >= 1")
	}
	if p.RequireSpecial && p.SpecialChars == "" {
		return errors.New("password policy RequireSpecial needs SpecialChars")
	}
	for _, r := range p.SpecialChars {
		if strings.ContainsRune(p.Forbidden, r) {
			return errors.New("password policy special and forbidden sets overlap")
		}
	}
	return nil
}

// Check runs every rule and returns the broken ones in evaluation order.
// A nil result means the password satisfies the policy.
func (p PasswordPolicy) Check(password string) []string {
	var (
		hasUpper, hasLower, hasDigit, hasSpecial, hasForbidden bool
	)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(p.SpecialChars, r) {
			hasSpecial = true
		}
		if strings.ContainsRune(p.Forbidden, r) {
			hasForbidden = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(password) < p.MinLength {
		violations = append(violations, RuleMinLength)
	}
	if p.RequireUpper && !hasUpper {
		violations = append(violations, RuleUppercase)
	}
	if p.RequireLower && !hasLower {
		violations = append(violations, RuleLowercase)
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, RuleDigit)
	}
	if p.RequireSpecial && !hasSpecial {
		violations = append(violations, RuleSpecial)
	}
	if hasForbidden {
		violations = append(violations, RuleForbidden)
	}
	return violations
}

// ValidatePassword returns [ErrWeakPassword] listing every violated rule, or nil.
func ValidatePassword(password string, policy PasswordPolicy) error {
	violations := policy.Check(password)
	if len(violations) == 0 {
		return nil
	}
	return WeakPassword(violations...)
}

// WeakPassword builds an [ErrWeakPassword] carrying violations for [Violations].
func WeakPassword(violations ...string) error {
	return oops.Code("WEAK_PASSWORD").
		With("violations", violations).
		Wrap(ErrWeakPassword)
}
