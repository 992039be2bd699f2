package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/credential"
)

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	Success      int
	Failure      int
	HashUpgraded int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success string
	Failure string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	IdentityNotFound   error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	// DummyHash is verified when no identity matches so that unknown emails
	// cost the same as wrong passwords.
	DummyHash              string
	PasswordUpgradeOnLogin bool

	Validate           func(email, password string) (credential.ValidatedLogin, error)
	FindByEmail        func(ctx context.Context, email string) (IdentityRecord, error)
	VerifyPassword     func(ctx context.Context, password, encodedHash string) (bool, error)
	NeedsUpgrade       func(encodedHash string) bool
	HashPassword       func(ctx context.Context, password string) (string, error)
	UpdatePasswordHash func(ctx context.Context, identityID, encodedHash string) error

	Issue IssueDeps

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates email/password and issues an access + refresh token pair.
//
// Unknown email, wrong password, and inactive identity all return
// Errors.InvalidCredentials.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (TokenPair, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Validate == nil ||
		deps.FindByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.Issue.IssueAccess == nil ||
		deps.Issue.IssueRefresh == nil ||
		deps.Issue.InsertRefresh == nil {
		return TokenPair{}, deps.Errors.EngineNotReady
	}

	fail := func(identityID, reason string, err error) (TokenPair, error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, identityID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return TokenPair{}, err
	}

	input, err := deps.Validate(email, password)
	if err != nil {
		return fail("", "invalid_input", err)
	}
	password = ""

	identity, err := deps.FindByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, deps.Errors.IdentityNotFound) {
			return TokenPair{}, err
		}
		if deps.DummyHash != "" {
			if _, verr := deps.VerifyPassword(ctx, input.Password, deps.DummyHash); verr != nil {
				return TokenPair{}, verr
			}
		}
		return fail("", "identity_not_found", deps.Errors.InvalidCredentials)
	}

	ok, err := deps.VerifyPassword(ctx, input.Password, identity.PasswordHash)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return fail(identity.ID, "password_mismatch", deps.Errors.InvalidCredentials)
	}
	if !identity.IsActive {
		return fail(identity.ID, "inactive", deps.Errors.InvalidCredentials)
	}

	if deps.PasswordUpgradeOnLogin && deps.NeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if deps.NeedsUpgrade(identity.PasswordHash) {
			upgraded, err := deps.HashPassword(ctx, input.Password)
			switch {
			case err != nil:
				deps.Warn("authcore: password hash upgrade generation failed", "identity_id", identity.ID)
			case deps.UpdatePasswordHash(ctx, identity.ID, upgraded) != nil:
				deps.Warn("authcore: password hash upgrade update failed", "identity_id", identity.ID)
			default:
				deps.MetricInc(deps.Metrics.HashUpgraded)
			}
		}
	}
	input.Password = ""

	pair, err := issueTokens(ctx, identity, deps.Issue)
	if err != nil {
		return fail(identity.ID, "token_issue", err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, identity.ID, nil, nil)
	return pair, nil
}
