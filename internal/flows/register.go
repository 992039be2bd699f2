package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/credential"
	"github.com/samber/oops"
)

// NewIdentity is the row handed to the atomic insert.
type NewIdentity struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// RegisterMetrics carries metric IDs used by the register flow.
type RegisterMetrics struct {
	Success   int
	Duplicate int
	Invalid   int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	Success   string
	Duplicate string
	Invalid   string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady     error
	EmailAlreadyExists error
	Hashing            error
	PasswordTooLong    error
}

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	Validate       func(name, email, password string) (credential.ValidatedCredentials, error)
	HashPassword   func(ctx context.Context, password string) (string, error)
	NewID          func() (string, error)
	InsertIdentity func(ctx context.Context, identity NewIdentity) (string, error)
	Now            func() time.Time

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates, hashes, and inserts a new identity.
//
// The hash is computed before the insert and the insert is the only write, so a
// request cancelled at any point leaves no identity behind.
func RunRegister(ctx context.Context, name, email, password string, deps RegisterDeps) (string, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Validate == nil || deps.HashPassword == nil || deps.NewID == nil || deps.InsertIdentity == nil {
		return "", deps.Errors.EngineNotReady
	}

	creds, err := deps.Validate(name, email, password)
	if err != nil {
		deps.MetricInc(deps.Metrics.Invalid)
		deps.EmitAudit(ctx, deps.Events.Invalid, false, "", err, func() map[string]string {
			return map[string]string{"field": invalidField(err)}
		})
		return "", err
	}

	hash, err := deps.HashPassword(ctx, creds.Password)
	creds.Password = ""
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if deps.Errors.PasswordTooLong != nil && errors.Is(err, deps.Errors.PasswordTooLong) {
			weak := credential.WeakPassword(credential.RuleMaxLength)
			deps.MetricInc(deps.Metrics.Invalid)
			deps.EmitAudit(ctx, deps.Events.Invalid, false, "", weak, func() map[string]string {
				return map[string]string{"field": "password"}
			})
			return "", weak
		}
		return "", oops.Code("HASHING").With("cause", err.Error()).Wrap(deps.Errors.Hashing)
	}

	id, err := deps.NewID()
	if err != nil {
		return "", oops.Code("ID_GENERATION").With("cause", err.Error()).Wrap(deps.Errors.Hashing)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	insertedID, err := deps.InsertIdentity(ctx, NewIdentity{
		ID:           id,
		Email:        creds.Email,
		Name:         creds.Name,
		PasswordHash: hash,
		CreatedAt:    deps.Now(),
	})
	if err != nil {
		if errors.Is(err, deps.Errors.EmailAlreadyExists) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Duplicate, false, "", deps.Errors.EmailAlreadyExists, nil)
		}
		return "", err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, insertedID, nil, nil)
	return insertedID, nil
}

func invalidField(err error) string {
	switch {
	case errors.Is(err, credential.ErrInvalidName):
		return "name"
	case errors.Is(err, credential.ErrInvalidEmail):
		return "email"
	case errors.Is(err, credential.ErrWeakPassword):
		return "password"
	default:
		return "unknown"
	}
}
