package flows

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// IdentityRecord is the flow-local view of a stored identity.
type IdentityRecord struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
}

// RefreshGrant is a freshly issued refresh token before persistence.
type RefreshGrant struct {
	Token     string
	Digest    string
	ExpiresAt time.Time
}

// RefreshRecord is the persisted form of a refresh token. Only the digest is stored.
type RefreshRecord struct {
	Digest     string
	IdentityID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	IdentityID       string
	Email            string
}

// AuditFunc emits one audit event. metadata is evaluated only when auditing is on.
type AuditFunc func(ctx context.Context, eventType string, success bool, identityID string, err error, metadata func() map[string]string)

// IssueDeps captures token issuance shared by login and refresh.
type IssueDeps struct {
	IssueAccess   func(subject, email string) (string, error)
	IssueRefresh  func() (RefreshGrant, error)
	InsertRefresh func(ctx context.Context, rec RefreshRecord) error
	Now           func() time.Time
	TokenError    error
}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(string, ...any) {}

func issueTokens(ctx context.Context, identity IdentityRecord, deps IssueDeps) (TokenPair, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	access, err := deps.IssueAccess(identity.ID, identity.Email)
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_ISSUE").
			With("kind", "access").
			With("cause", err.Error()).
			Wrap(deps.TokenError)
	}

	grant, err := deps.IssueRefresh()
	if err != nil {
		return TokenPair{}, oops.Code("TOKEN_ISSUE").
			With("kind", "refresh").
			With("cause", err.Error()).
			Wrap(deps.TokenError)
	}

	if err := deps.InsertRefresh(ctx, RefreshRecord{
		Digest:     grant.Digest,
		IdentityID: identity.ID,
		ExpiresAt:  grant.ExpiresAt,
		CreatedAt:  deps.Now(),
	}); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     grant.Token,
		RefreshExpiresAt: grant.ExpiresAt,
		IdentityID:       identity.ID,
		Email:            identity.Email,
	}, nil
}
