package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/store"
)

const (
	auditEventSessionRestored         = "session_restored"
	auditEventSessionRestoreRejected  = "session_restore_rejected"
	auditEventSignInStarted           = "signin_started"
	auditEventSignInConflict          = "signin_conflict"
	auditEventSignInRateLimited       = "signin_rate_limited"
	auditEventSignInSuccess           = "signin_success"
	auditEventSignInFailure           = "signin_failure"
	auditEventSignInProtocolViolation = "signin_protocol_violation"
	auditEventSessionPersistFailed    = "session_persist_failed"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInProgress        AuditErrorCode = "signin_in_progress"
	auditErrAlreadySignedIn   AuditErrorCode = "already_signed_in"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrStartFailed       AuditErrorCode = "start_failed"
	auditErrProtocolViolation AuditErrorCode = "protocol_violation"
	auditErrMalformed         AuditErrorCode = "malformed_persisted_state"
	auditErrExpired           AuditErrorCode = "expired_credential"
	auditErrInvalidCredential AuditErrorCode = "invalid_credential"
	auditErrPersistFailed     AuditErrorCode = "persist_failed"
	auditErrCorrupt           AuditErrorCode = "store_corrupt"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

// emitAudit stamps ev with the clock and the error label for err, then hands it to the
// dispatcher.
func (m *Manager) emitAudit(ctx context.Context, ev AuditEvent, err error) {
	if m == nil || m.audit == nil {
		return
	}

	ev.Timestamp = m.now().UTC()
	if code := auditErrorCode(err); code != "" {
		ev.Error = string(code)
	}
	m.audit.Emit(ctx, ev)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSignInInProgress):
		return auditErrInProgress
	case errors.Is(err, ErrAlreadySignedIn):
		return auditErrAlreadySignedIn
	case errors.Is(err, ErrSignInRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSignInStartFailed):
		return auditErrStartFailed
	case errors.Is(err, ErrProtocolViolation):
		return auditErrProtocolViolation
	case errors.Is(err, ErrMalformedPersistedState):
		return auditErrMalformed
	case errors.Is(err, ErrExpiredCredential):
		return auditErrExpired
	case errors.Is(err, ErrInvalidCredential):
		return auditErrInvalidCredential
	case errors.Is(err, ErrPersistFailed):
		return auditErrPersistFailed
	case errors.Is(err, store.ErrCorrupt):
		return auditErrCorrupt
	case errors.Is(err, store.ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
