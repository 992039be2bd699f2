package flows

import (
	"context"
	"errors"
	"time"
)

// RefreshMetrics carries metric IDs used by the refresh and logout flows.
type RefreshMetrics struct {
	Success int
	Failure int
	Logout  int
}

// RefreshEvents carries audit event names used by the refresh and logout flows.
type RefreshEvents struct {
	Success string
	Invalid string
	Logout  string
}

// RefreshErrors carries host-level sentinel errors used by the refresh and logout flows.
type RefreshErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	RefreshNotFound    error
	IdentityNotFound   error
}

// RefreshDeps captures refresh and logout flow dependencies.
type RefreshDeps struct {
	HashRefreshToken func(token string) (string, error)
	// ConsumeRefresh removes the record for digest and returns it. A missing
	// record is reported as Errors.RefreshNotFound.
	ConsumeRefresh func(ctx context.Context, digest string) (RefreshRecord, error)
	FindByID       func(ctx context.Context, identityID string) (IdentityRecord, error)
	Now            func() time.Time

	Issue IssueDeps

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh exchanges a refresh token for a new token pair. The presented token
// is consumed first, so it can succeed at most once.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (TokenPair, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.HashRefreshToken == nil || deps.ConsumeRefresh == nil || deps.FindByID == nil ||
		deps.Issue.IssueAccess == nil || deps.Issue.IssueRefresh == nil || deps.Issue.InsertRefresh == nil {
		return TokenPair{}, deps.Errors.EngineNotReady
	}

	invalid := func(identityID, reason string) (TokenPair, error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, identityID, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return TokenPair{}, deps.Errors.InvalidCredentials
	}

	digest, err := deps.HashRefreshToken(refreshToken)
	if err != nil {
		return invalid("", "malformed")
	}

	record, err := deps.ConsumeRefresh(ctx, digest)
	if err != nil {
		if errors.Is(err, deps.Errors.RefreshNotFound) {
			return invalid("", "unknown_or_used")
		}
		return TokenPair{}, err
	}

	if !deps.Now().Before(record.ExpiresAt) {
		return invalid(record.IdentityID, "expired")
	}

	identity, err := deps.FindByID(ctx, record.IdentityID)
	if err != nil {
		if errors.Is(err, deps.Errors.IdentityNotFound) {
			return invalid(record.IdentityID, "identity_missing")
		}
		return TokenPair{}, err
	}
	if !identity.IsActive {
		return invalid(identity.ID, "inactive")
	}

	pair, err := issueTokens(ctx, identity, deps.Issue)
	if err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		return TokenPair{}, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, identity.ID, nil, nil)
	return pair, nil
}

// RunLogout consumes refreshToken. Unknown, used, and malformed tokens are not errors.
func RunLogout(ctx context.Context, refreshToken string, deps RefreshDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.HashRefreshToken == nil || deps.ConsumeRefresh == nil {
		return deps.Errors.EngineNotReady
	}

	digest, err := deps.HashRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	record, err := deps.ConsumeRefresh(ctx, digest)
	if err != nil {
		if errors.Is(err, deps.Errors.RefreshNotFound) {
			return nil
		}
		return err
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, record.IdentityID, nil, nil)
	return nil
}
