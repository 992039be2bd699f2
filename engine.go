package authcore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/MrEthical07/authcore/credential"
	"github.com/MrEthical07/authcore/internal"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	internalflows "github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/logging"
	internalmetrics "github.com/MrEthical07/authcore/internal/metrics"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// Engine is the authentication core. It is immutable after Build and safe for
// concurrent use.
type Engine struct {
	config     Config
	identities IdentityStore
	refresh    RefreshStore
	validator  *credential.Validator
	hasher     *password.Pool
	dummyHash  string
	tokens     *jwt.Manager
	audit      *internalaudit.Dispatcher
	metrics    *internalmetrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() (string, error)
}

// Close flushes and stops the audit dispatcher. Stores are owned by the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
		if n := e.audit.Panicked(); n > 0 && e.logger != nil {
			e.logger.Warn("audit sink panicked", slog.Uint64("events", n))
		}
	}
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the current metric values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) warn(msg string, args ...any) {
	e.logger.Warn(msg, args...)
}

// Register validates input, hashes the password, and inserts a new identity in one
// constrained write. It returns the new identity id.
//
// Validation errors ([ErrInvalidName], [ErrInvalidEmail], [ErrWeakPassword]) and
// [ErrEmailAlreadyExists] are returned unchanged. If ctx ends before the insert,
// nothing is stored.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	id, err := internalflows.RunRegister(ctx, input.Name, input.Email, input.Password, e.registerFlowDeps())
	if err != nil && KindOf(err) == KindInternal {
		e.logError(ctx, "register failed", err)
	}
	return id, err
}

// Login authenticates email and password and returns a fresh token pair.
//
// Unknown email, wrong password, and inactive identity are indistinguishable:
// all return [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if e == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	pair, err := internalflows.RunLogin(ctx, email, password, e.loginFlowDeps())
	if err != nil {
		if KindOf(err) == KindInternal {
			e.logError(ctx, "login failed", err)
		}
		return LoginResult{}, err
	}
	return e.loginResult(pair), nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token works once;
// presenting it again returns [ErrInvalidCredentials].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if e == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	pair, err := internalflows.RunRefresh(ctx, refreshToken, e.refreshFlowDeps())
	if err != nil {
		if KindOf(err) == KindInternal {
			e.logError(ctx, "refresh failed", err)
		}
		return LoginResult{}, err
	}
	return e.loginResult(pair), nil
}

// Logout consumes refreshToken. Unknown or already used tokens are not an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return internalflows.RunLogout(ctx, refreshToken, e.refreshFlowDeps())
}

// ValidateAccess verifies an access token using the configured ValidationMode.
func (e *Engine) ValidateAccess(ctx context.Context, token string) (AccessClaims, error) {
	return e.Validate(ctx, token, ModeInherit)
}

// Validate verifies an access token. ModeJWTOnly checks signature and expiry without
// I/O; ModeStrict also requires the subject to be an active identity. Every rejection
// is [ErrInvalidCredentials]; the specific cause is logged at debug level.
func (e *Engine) Validate(ctx context.Context, token string, mode ValidationMode) (AccessClaims, error) {
	if e == nil || e.tokens == nil {
		return AccessClaims{}, ErrEngineNotReady
	}
	if mode == ModeInherit {
		mode = e.config.ValidationMode
	}

	claims, err := e.tokens.VerifyAccess(token)
	if err != nil {
		return AccessClaims{}, e.rejectToken(ctx, err)
	}

	if mode == ModeStrict {
		active, err := e.IdentityExistsAndActive(ctx, claims.Subject)
		if err != nil {
			return AccessClaims{}, err
		}
		if !active {
			return AccessClaims{}, e.rejectToken(ctx, errors.New("subject inactive"))
		}
	}

	return claims, nil
}

func (e *Engine) rejectToken(ctx context.Context, cause error) error {
	e.metricInc(MetricTokenRejected)
	e.logger.DebugContext(ctx, "access token rejected", slog.String("cause", tokenRejectCause(cause)))
	return oops.Code("TOKEN_REJECTED").With("cause", tokenRejectCause(cause)).Wrap(ErrInvalidCredentials)
}

func tokenRejectCause(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if cause, ok := oopsErr.Context()["cause"].(string); ok {
			return cause
		}
	}
	return err.Error()
}

// Config returns a copy of the engine configuration without the signing secret.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	cfg := cloneConfig(e.config)
	cfg.JWT.Secret = nil
	cfg.JWT.VerifyKeys = nil
	return cfg
}

func (e *Engine) loginResult(pair internalflows.TokenPair) LoginResult {
	return LoginResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		IdentityID:       pair.IdentityID,
		Email:            pair.Email,
		ExpiresIn:        e.tokens.AccessTTL(),
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func (e *Engine) logError(ctx context.Context, msg string, err error) {
	logging.LogError(ctx, e.logger, msg, err)
}

func (e *Engine) issueDeps() internalflows.IssueDeps {
	return internalflows.IssueDeps{
		IssueAccess: e.tokens.IssueAccess,
		IssueRefresh: func() (internalflows.RefreshGrant, error) {
			rt, err := e.tokens.IssueRefresh()
			if err != nil {
				return internalflows.RefreshGrant{}, err
			}
			return internalflows.RefreshGrant{Token: rt.Token, Digest: rt.Digest, ExpiresAt: rt.ExpiresAt}, nil
		},
		InsertRefresh: func(ctx context.Context, rec internalflows.RefreshRecord) error {
			return e.refresh.InsertRefreshToken(ctx, RefreshRecord(rec))
		},
		Now:        e.now,
		TokenError: ErrToken,
	}
}

func (e *Engine) registerFlowDeps() internalflows.RegisterDeps {
	return internalflows.RegisterDeps{
		Validate:     e.validator.Registration,
		HashPassword: e.hasher.Hash,
		NewID:        e.newID,
		InsertIdentity: func(ctx context.Context, identity internalflows.NewIdentity) (string, error) {
			return e.identities.InsertIdentityIfEmailFree(ctx, Identity{
				ID:           identity.ID,
				Email:        identity.Email,
				Name:         identity.Name,
				PasswordHash: identity.PasswordHash,
				IsActive:     true,
				CreatedAt:    identity.CreatedAt,
				UpdatedAt:    identity.CreatedAt,
			})
		},
		Now:       e.now,
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RegisterMetrics{
			Success:   int(MetricRegisterSuccess),
			Duplicate: int(MetricRegisterDuplicate),
			Invalid:   int(MetricRegisterInvalid),
		},
		Events: internalflows.RegisterEvents{
			Success:   auditEventRegisterSuccess,
			Duplicate: auditEventRegisterDuplicate,
			Invalid:   auditEventRegisterInvalid,
		},
		Errors: internalflows.RegisterErrors{
			EngineNotReady:     ErrEngineNotReady,
			EmailAlreadyExists: ErrEmailAlreadyExists,
			Hashing:            ErrHashing,
			PasswordTooLong:    password.ErrPasswordTooLong,
		},
	}
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		DummyHash:              e.dummyHash,
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		Validate:               e.validator.Login,
		FindByEmail: func(ctx context.Context, email string) (internalflows.IdentityRecord, error) {
			identity, err := e.identities.FindIdentityByEmail(ctx, email)
			if err != nil {
				return internalflows.IdentityRecord{}, err
			}
			return identityRecord(identity), nil
		},
		VerifyPassword:     e.hasher.Verify,
		NeedsUpgrade:       e.hasher.NeedsUpgrade,
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.identities.UpdatePasswordHash,
		Issue:              e.issueDeps(),
		MetricInc:          e.flowMetricInc,
		EmitAudit:          e.emitAudit,
		Warn:               e.warn,
		Metrics: internalflows.LoginMetrics{
			Success:      int(MetricLoginSuccess),
			Failure:      int(MetricLoginFailure),
			HashUpgraded: int(MetricPasswordHashUpgraded),
		},
		Events: internalflows.LoginEvents{
			Success: auditEventLoginSuccess,
			Failure: auditEventLoginFailure,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			IdentityNotFound:   ErrIdentityNotFound,
		},
	}
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	return internalflows.RefreshDeps{
		HashRefreshToken: internal.HashRefreshToken,
		ConsumeRefresh: func(ctx context.Context, digest string) (internalflows.RefreshRecord, error) {
			rec, err := e.refresh.ConsumeRefreshToken(ctx, digest)
			if err != nil {
				return internalflows.RefreshRecord{}, err
			}
			return internalflows.RefreshRecord(rec), nil
		},
		FindByID: func(ctx context.Context, id string) (internalflows.IdentityRecord, error) {
			identity, err := e.identities.FindIdentityByID(ctx, id)
			if err != nil {
				return internalflows.IdentityRecord{}, err
			}
			return identityRecord(identity), nil
		},
		Now:       e.now,
		Issue:     e.issueDeps(),
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RefreshMetrics{
			Success: int(MetricRefreshSuccess),
			Failure: int(MetricRefreshFailure),
			Logout:  int(MetricLogout),
		},
		Events: internalflows.RefreshEvents{
			Success: auditEventRefreshSuccess,
			Invalid: auditEventRefreshInvalid,
			Logout:  auditEventLogout,
		},
		Errors: internalflows.RefreshErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			RefreshNotFound:    ErrInvalidRefreshToken,
			IdentityNotFound:   ErrIdentityNotFound,
		},
	}
}

func identityRecord(identity Identity) internalflows.IdentityRecord {
	return internalflows.IdentityRecord{
		ID:           identity.ID,
		Email:        identity.Email,
		Name:         identity.Name,
		PasswordHash: identity.PasswordHash,
		IsActive:     identity.IsActive,
	}
}

// PasswordPolicy returns the policy registrations are validated against.
func (e *Engine) PasswordPolicy() credential.PasswordPolicy {
	if e == nil || e.validator == nil {
		return credential.PasswordPolicy{}
	}
	return e.validator.Policy()
}
