package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/credential"
	internalflows "github.com/MrEthical07/authcore/internal/flows"
)

// Deactivate soft-deletes an identity and revokes all of its refresh tokens.
// Deactivating an inactive identity succeeds and changes nothing.
func (e *Engine) Deactivate(ctx context.Context, identityID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return internalflows.RunDeactivate(ctx, identityID, internalflows.DeactivateDeps{
		SoftDeactivate: e.identities.SoftDeactivate,
		RevokeRefresh:  e.refresh.RevokeRefreshTokens,
		MetricInc:      e.flowMetricInc,
		EmitAudit:      e.emitAudit,
		Metric:         int(MetricDeactivate),
		Event:          auditEventDeactivate,
		Errors:         e.accountErrors(),
	})
}

// GetIdentity returns an active identity. Inactive identities are reported as
// [ErrIdentityNotFound].
func (e *Engine) GetIdentity(ctx context.Context, identityID string) (Identity, error) {
	if e == nil {
		return Identity{}, ErrEngineNotReady
	}
	if identityID == "" {
		return Identity{}, ErrIdentityNotFound
	}
	identity, err := e.identities.FindIdentityByID(ctx, identityID)
	if err != nil {
		return Identity{}, err
	}
	if !identity.IsActive {
		return Identity{}, ErrIdentityNotFound
	}
	return identity, nil
}

// IdentityExistsAndActive reports whether identityID names an active identity.
func (e *Engine) IdentityExistsAndActive(ctx context.Context, identityID string) (bool, error) {
	_, err := e.GetIdentity(ctx, identityID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrIdentityNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ListIdentities returns active identities, newest first. limit <= 0 uses
// Config.Listing.DefaultLimit and is capped at MaxLimit; offset < 0 is treated as 0.
func (e *Engine) ListIdentities(ctx context.Context, limit, offset int) ([]Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if limit <= 0 {
		limit = e.config.Listing.DefaultLimit
	}
	if limit > e.config.Listing.MaxLimit {
		limit = e.config.Listing.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return e.identities.ListActive(ctx, limit, offset)
}

// CountActive returns the number of active identities.
func (e *Engine) CountActive(ctx context.Context) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	return e.identities.CountActive(ctx)
}

// UpdateIdentity changes the name and/or email of an active identity. Both are
// re-validated; an email held by another identity returns [ErrEmailAlreadyExists].
func (e *Engine) UpdateIdentity(ctx context.Context, identityID string, update IdentityUpdate) (Identity, error) {
	if e == nil {
		return Identity{}, ErrEngineNotReady
	}
	if identityID == "" {
		return Identity{}, ErrIdentityNotFound
	}

	var stored Identity
	_, err := internalflows.RunUpdateIdentity(ctx, identityID, internalflows.IdentityChanges{
		Name:  update.Name,
		Email: update.Email,
	}, internalflows.UpdateIdentityDeps{
		NormalizeName:  credential.NormalizeName,
		NormalizeEmail: credential.NormalizeEmail,
		FindByID: func(ctx context.Context, id string) (internalflows.IdentityRecord, error) {
			identity, err := e.identities.FindIdentityByID(ctx, id)
			if err != nil {
				return internalflows.IdentityRecord{}, err
			}
			stored = identity
			return identityRecord(identity), nil
		},
		UpdateIdentity: func(ctx context.Context, next internalflows.IdentityRecord) (internalflows.IdentityRecord, error) {
			identity, err := e.identities.UpdateIdentity(ctx, next.ID, next.Name, next.Email)
			if err != nil {
				return internalflows.IdentityRecord{}, err
			}
			stored = identity
			return identityRecord(identity), nil
		},
		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,
		Metric:    int(MetricIdentityUpdated),
		Event:     auditEventIdentityUpdated,
		Errors:    e.accountErrors(),
	})
	if err != nil {
		return Identity{}, err
	}
	return stored, nil
}

func (e *Engine) accountErrors() internalflows.AccountErrors {
	return internalflows.AccountErrors{
		EngineNotReady:     ErrEngineNotReady,
		IdentityNotFound:   ErrIdentityNotFound,
		EmailAlreadyExists: ErrEmailAlreadyExists,
	}
}
