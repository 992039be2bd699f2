package flows

import (
	"context"
	"errors"
	"strings"
)

// AccountErrors carries host-level sentinel errors used by account flows.
type AccountErrors struct {
	EngineNotReady     error
	IdentityNotFound   error
	EmailAlreadyExists error
}

// DeactivateDeps captures deactivate flow dependencies.
type DeactivateDeps struct {
	SoftDeactivate func(ctx context.Context, identityID string) error
	RevokeRefresh  func(ctx context.Context, identityID string) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metric int
	Event  string
	Errors AccountErrors
}

// RunDeactivate soft-deactivates an identity and revokes its refresh tokens.
// Repeating it on an inactive identity is a no-op success.
func RunDeactivate(ctx context.Context, identityID string, deps DeactivateDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.SoftDeactivate == nil || deps.RevokeRefresh == nil {
		return deps.Errors.EngineNotReady
	}
	if identityID == "" {
		return deps.Errors.IdentityNotFound
	}

	if err := deps.SoftDeactivate(ctx, identityID); err != nil {
		return err
	}
	if err := deps.RevokeRefresh(ctx, identityID); err != nil {
		return err
	}

	deps.MetricInc(deps.Metric)
	deps.EmitAudit(ctx, deps.Event, true, identityID, nil, nil)
	return nil
}

// IdentityChanges lists the fields to change. Nil fields are left as they are.
type IdentityChanges struct {
	Name  *string
	Email *string
}

// UpdateIdentityDeps captures update flow dependencies.
type UpdateIdentityDeps struct {
	NormalizeName  func(string) (string, error)
	NormalizeEmail func(string) (string, error)
	FindByID       func(ctx context.Context, identityID string) (IdentityRecord, error)
	// UpdateIdentity writes name and email. An email taken by another identity
	// is reported as Errors.EmailAlreadyExists.
	UpdateIdentity func(ctx context.Context, identity IdentityRecord) (IdentityRecord, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metric int
	Event  string
	Errors AccountErrors
}

// RunUpdateIdentity re-validates and applies changes to an active identity.
func RunUpdateIdentity(ctx context.Context, identityID string, changes IdentityChanges, deps UpdateIdentityDeps) (IdentityRecord, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.NormalizeName == nil || deps.NormalizeEmail == nil || deps.FindByID == nil || deps.UpdateIdentity == nil {
		return IdentityRecord{}, deps.Errors.EngineNotReady
	}

	var name, email string
	if changes.Name != nil {
		n, err := deps.NormalizeName(*changes.Name)
		if err != nil {
			return IdentityRecord{}, err
		}
		name = n
	}
	if changes.Email != nil {
		e, err := deps.NormalizeEmail(*changes.Email)
		if err != nil {
			return IdentityRecord{}, err
		}
		email = e
	}

	current, err := deps.FindByID(ctx, identityID)
	if err != nil {
		return IdentityRecord{}, err
	}
	if !current.IsActive {
		return IdentityRecord{}, deps.Errors.IdentityNotFound
	}

	next := current
	var changed []string
	if changes.Name != nil && name != current.Name {
		next.Name = name
		changed = append(changed, "name")
	}
	if changes.Email != nil && email != current.Email {
		next.Email = email
		changed = append(changed, "email")
	}
	if len(changed) == 0 {
		return current, nil
	}

	updated, err := deps.UpdateIdentity(ctx, next)
	if err != nil {
		if errors.Is(err, deps.Errors.EmailAlreadyExists) {
			deps.EmitAudit(ctx, deps.Event, false, identityID, err, nil)
		}
		return IdentityRecord{}, err
	}

	deps.MetricInc(deps.Metric)
	deps.EmitAudit(ctx, deps.Event, true, identityID, nil, func() map[string]string {
		return map[string]string{"fields": strings.Join(changed, ",")}
	})
	return updated, nil
}
