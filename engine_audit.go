package authcore

import (
	"context"
	"errors"
)

const (
	auditEventRegisterSuccess   = "register_success"
	auditEventRegisterDuplicate = "register_duplicate"
	auditEventRegisterInvalid   = "register_invalid"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventRefreshSuccess    = "refresh_success"
	auditEventRefreshInvalid    = "refresh_invalid"
	auditEventLogout            = "logout"
	auditEventDeactivate        = "deactivate"
	auditEventIdentityUpdated   = "identity_updated"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidName        AuditErrorCode = "invalid_name"
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrWeakPassword       AuditErrorCode = "weak_password"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrNotFound           AuditErrorCode = "identity_not_found"
	auditErrHashing            AuditErrorCode = "hashing_failed"
	auditErrToken              AuditErrorCode = "token_failed"
	auditErrCanceled           AuditErrorCode = "canceled"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	meta := metaFrom(ctx)
	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		EventType:  eventType,
		IdentityID: identityID,
		IP:         meta.clientIP,
		UserAgent:  meta.userAgent,
		RequestID:  meta.requestID,
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidName):
		return auditErrInvalidName
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrWeakPassword):
		return auditErrWeakPassword
	case errors.Is(err, ErrEmailAlreadyExists):
		return auditErrDuplicate
	case errors.Is(err, ErrIdentityNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrHashing):
		return auditErrHashing
	case errors.Is(err, ErrToken):
		return auditErrToken
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
