package authcore

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/jwt"
)

// Identity is a stored account. Email is canonical (trimmed, lower-cased) and unique
// across all identities, active or not. IsActive only ever goes from true to false.
type Identity struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshRecord is a persisted refresh token. Only the SHA-256 digest of the token
// is stored.
type RefreshRecord struct {
	Digest     string
	IdentityID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// IdentityStore is the identity half of the repository contract.
//
// Lookups return [ErrIdentityNotFound] when nothing matches. FindIdentityByID and
// FindIdentityByEmail return inactive identities too; the Engine filters them.
type IdentityStore interface {
	// InsertIdentityIfEmailFree inserts identity in one constrained write and returns
	// its id, or ErrEmailAlreadyExists if the email is taken. It must never be a
	// separate check followed by an insert.
	InsertIdentityIfEmailFree(ctx context.Context, identity Identity) (string, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
	// SoftDeactivate clears IsActive. Deactivating an inactive identity is a no-op.
	SoftDeactivate(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	// UpdateIdentity writes name and email and advances UpdatedAt. A taken email is
	// reported as ErrEmailAlreadyExists.
	UpdateIdentity(ctx context.Context, id, name, email string) (Identity, error)
	// ListActive returns active identities, newest first.
	ListActive(ctx context.Context, limit, offset int) ([]Identity, error)
	CountActive(ctx context.Context) (int, error)
}

// RefreshStore persists refresh token digests.
type RefreshStore interface {
	InsertRefreshToken(ctx context.Context, record RefreshRecord) error
	// ConsumeRefreshToken atomically removes and returns the record for digest, or
	// returns ErrInvalidRefreshToken. Two concurrent calls never both succeed.
	ConsumeRefreshToken(ctx context.Context, digest string) (RefreshRecord, error)
	// RevokeRefreshTokens removes every record for identityID.
	RevokeRefreshTokens(ctx context.Context, identityID string) error
}

// Repository is a store that serves both contracts.
type Repository interface {
	IdentityStore
	RefreshStore
}

// RegisterInput is raw registration input.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	IdentityID       string
	Email            string
	ExpiresIn        time.Duration
	RefreshExpiresAt time.Time
}

// IdentityUpdate lists fields to change. Nil fields are left unchanged.
type IdentityUpdate struct {
	Name  *string
	Email *string
}

// AccessClaims are the facts carried by a verified access token.
type AccessClaims = jwt.AccessClaims

// ValidationMode selects how much work ValidateAccess does per request.
type ValidationMode int

const (
	// ModeJWTOnly checks signature and expiry only. No I/O.
	ModeJWTOnly ValidationMode = iota
	// ModeStrict also requires the subject to exist and be active.
	ModeStrict
	// ModeInherit uses the engine's configured mode.
	ModeInherit ValidationMode = -1
)

func (m ValidationMode) String() string {
	switch m {
	case ModeJWTOnly:
		return "jwt_only"
	case ModeStrict:
		return "strict"
	case ModeInherit:
		return "inherit"
	default:
		return "unknown"
	}
}

// AuditEvent is one audit record. It never carries passwords, hashes, or tokens.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs audit events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies one engine metric.
type MetricID = internalmetrics.ID

// MetricsSnapshot is a point-in-time copy of engine metrics.
type MetricsSnapshot = internalmetrics.Snapshot
