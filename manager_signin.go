package goAccount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/provider"
	"github.com/google/uuid"
)

// BeginSignIn starts one sign-in attempt with the provider client.
//
// It is valid from StateNoSession, StateFailed, and StateActive when the active credential
// has expired. While an attempt is in flight it returns [ErrSignInInProgress] and the
// client is not called again. With a valid active session it returns [ErrAlreadySignedIn].
// When the client fails to start, the attempt ends as StateFailed with reason
// "start_failed" and the error wraps [ErrSignInStartFailed].
func (m *Manager) BeginSignIn(ctx context.Context, hint provider.Kind) error {
	if err := m.precheckSignIn(ctx, hint); err != nil {
		return err
	}

	if err := m.checkThrottle(ctx, hint); err != nil {
		return err
	}

	m.mu.Lock()
	if err := m.signInAllowedLocked(); err != nil {
		m.mu.Unlock()
		m.rejectSignIn(ctx, hint, err)
		return err
	}
	a := &signInAttempt{
		id:      uuid.NewString(),
		hint:    hint,
		started: m.now(),
	}
	if timeout := m.config.SignIn.Timeout; timeout > 0 {
		id := a.id
		a.timer = time.AfterFunc(timeout, func() {
			m.expireAttempt(id)
		})
	}
	m.attempt = a
	m.state = SessionState{Kind: StateSigningIn}
	st := m.state
	m.mu.Unlock()

	m.metrics.Inc(MetricSignInStarted)
	m.logger.Info().Str("attempt", a.id).Str("provider", hint.String()).Msg("sign-in started")
	m.emitAudit(ctx, AuditEvent{EventType: auditEventSignInStarted, Success: true, Provider: hint, AttemptID: a.id, State: st.Kind}, nil)
	m.notify(st)

	code, err := m.client.StartSignIn(ctx, m.host, hint, &attemptCallbacks{m: m, id: a.id})
	if err != nil {
		m.logger.Error().Err(err).Str("attempt", a.id).Msg("sign-in start failed")
		_ = m.finishFailure(ctx, a.id, provider.ReasonStartFailed)
		return fmt.Errorf("%w: %v", ErrSignInStartFailed, err)
	}

	m.mu.Lock()
	current := m.attempt != nil && m.attempt.id == a.id
	if current {
		m.attempt.code = code
		m.attempt.hasCode = true
	}
	m.mu.Unlock()
	if !current {
		// Ended while the client was starting; the client may still hold it.
		m.client.Abandon(code)
	}
	return nil
}

func (m *Manager) precheckSignIn(ctx context.Context, hint provider.Kind) error {
	m.mu.Lock()
	err := m.signInAllowedLocked()
	m.mu.Unlock()
	if err != nil {
		m.rejectSignIn(ctx, hint, err)
	}
	return err
}

func (m *Manager) signInAllowedLocked() error {
	switch {
	case m.closed:
		return ErrManagerNotReady
	case m.state.Kind == StateSigningIn:
		return ErrSignInInProgress
	case m.activeLocked():
		return ErrAlreadySignedIn
	default:
		return nil
	}
}

func (m *Manager) rejectSignIn(ctx context.Context, hint provider.Kind, err error) {
	if errors.Is(err, ErrManagerNotReady) {
		return
	}
	m.metrics.Inc(MetricSignInConflict)
	m.logger.Debug().Err(err).Msg("sign-in rejected")
	m.emitAudit(ctx, AuditEvent{EventType: auditEventSignInConflict, Provider: hint, State: m.State().Kind}, err)
}

// checkThrottle fails open: a throttle backend error is logged and the attempt proceeds.
func (m *Manager) checkThrottle(ctx context.Context, hint provider.Kind) error {
	if m.limiter == nil {
		return nil
	}
	err := m.limiter.CheckSignIn(ctx, throttleScope(hint))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		m.metrics.Inc(MetricSignInRateLimited)
		m.logger.Warn().Str("provider", hint.String()).Msg("sign-in rate limited")
		m.emitAudit(ctx, AuditEvent{EventType: auditEventSignInRateLimited, Provider: hint, State: m.State().Kind}, ErrSignInRateLimited)
		return ErrSignInRateLimited
	default:
		m.logger.Warn().Err(err).Msg("sign-in throttle unavailable")
		return nil
	}
}

func throttleScope(hint provider.Kind) string {
	if hint == "" {
		return "any"
	}
	return hint.String()
}

// OnSignInSuccess completes the in-flight attempt with a profile and token.
//
// The credential is persisted with one full overwrite. A credential that is missing a
// required field or has already expired ends the attempt as StateFailed with reason
// "invalid_credential" and is not written. A store write error leaves the session active
// and is returned wrapped in [ErrPersistFailed]. Outside StateSigningIn the outcome is
// ignored and [ErrProtocolViolation] is returned.
func (m *Manager) OnSignInSuccess(ctx context.Context, profile provider.Profile, tok provider.Token) error {
	return m.finishSuccess(ctx, "", profile, tok)
}

// OnSignInFailed completes the in-flight attempt as StateFailed. The store is never
// written. An empty reason is recorded as "provider_error".
func (m *Manager) OnSignInFailed(ctx context.Context, reason provider.Reason) error {
	return m.finishFailure(ctx, "", reason)
}

// CancelSignIn abandons the in-flight attempt with reason "cancelled".
func (m *Manager) CancelSignIn(ctx context.Context) error {
	m.mu.Lock()
	inFlight := m.state.Kind == StateSigningIn
	m.mu.Unlock()
	if !inFlight {
		return ErrNoSignInInProgress
	}
	return m.finishFailure(ctx, "", provider.ReasonCancelled)
}

// takeAttemptLocked detaches the in-flight attempt. An empty id matches whatever attempt
// is current; otherwise the attempt must be the one with that id.
func (m *Manager) takeAttemptLocked(id string) (*signInAttempt, bool) {
	if m.state.Kind != StateSigningIn || m.attempt == nil {
		return nil, false
	}
	if id != "" && m.attempt.id != id {
		return nil, false
	}
	a := m.attempt
	m.attempt = nil
	if a.timer != nil {
		a.timer.Stop()
	}
	return a, true
}

func (m *Manager) finishSuccess(ctx context.Context, id string, profile provider.Profile, tok provider.Token) error {
	m.mu.Lock()
	a, ok := m.takeAttemptLocked(id)
	if !ok {
		m.mu.Unlock()
		m.protocolViolation(ctx, id, "success")
		return ErrProtocolViolation
	}
	defer m.abandon(a)

	now := m.now()
	cred, err := credentialFromOutcome(profile, tok, a.hint, m.inspector)
	if err == nil && !cred.Valid(now) {
		err = ErrInvalidCredential
	}
	if err != nil {
		m.state = SessionState{Kind: StateFailed, Reason: provider.ReasonInvalidCredential}
		st := m.state
		m.mu.Unlock()

		m.recordFailure(ctx, a, provider.ReasonInvalidCredential, now)
		m.logger.Warn().Err(err).Str("attempt", a.id).Msg("sign-in returned an invalid credential")
		m.emitAudit(ctx, AuditEvent{
			EventType: auditEventSignInFailure,
			AccountID: profile.AccountID,
			Provider:  cred.Provider,
			AttemptID: a.id,
			State:     st.Kind,
			Reason:    st.Reason,
		}, err)
		m.notify(st)
		return err
	}

	m.state = SessionState{Kind: StateActive, Credential: cred}
	st := m.state
	writeErr := m.store.WriteAll(ctx, encodeCredential(cred))
	m.mu.Unlock()

	m.metrics.Inc(MetricSignInSuccess)
	m.metrics.Observe(MetricSignInLatency, now.Sub(a.started))
	if m.limiter != nil {
		if err := m.limiter.ResetSignIn(ctx, throttleScope(a.hint)); err != nil {
			m.logger.Warn().Err(err).Msg("sign-in throttle reset failed")
		}
	}
	m.logger.Info().Str("attempt", a.id).Str("account", cred.AccountID).Str("provider", cred.Provider.String()).Msg("signed in")
	m.emitAudit(ctx, AuditEvent{EventType: auditEventSignInSuccess, Success: true, AccountID: cred.AccountID, Provider: cred.Provider, AttemptID: a.id, State: st.Kind}, nil)
	m.notify(st)

	if writeErr != nil {
		err := fmt.Errorf("%w: %v", ErrPersistFailed, writeErr)
		m.metrics.Inc(MetricPersistFailure)
		m.logger.Error().Err(writeErr).Str("account", cred.AccountID).Msg("session persist failed")
		m.emitAudit(ctx, AuditEvent{EventType: auditEventSessionPersistFailed, AccountID: cred.AccountID, Provider: cred.Provider, AttemptID: a.id, State: st.Kind}, err)
		return err
	}
	return nil
}

func (m *Manager) finishFailure(ctx context.Context, id string, reason provider.Reason) error {
	if reason == "" {
		reason = provider.ReasonProviderError
	}

	m.mu.Lock()
	a, ok := m.takeAttemptLocked(id)
	if !ok {
		m.mu.Unlock()
		m.protocolViolation(ctx, id, "failure")
		return ErrProtocolViolation
	}
	defer m.abandon(a)
	m.state = SessionState{Kind: StateFailed, Reason: reason}
	st := m.state
	m.mu.Unlock()

	m.recordFailure(ctx, a, reason, m.now())
	m.logger.Info().Str("attempt", a.id).Str("reason", string(reason)).Msg("sign-in failed")
	m.emitAudit(ctx, AuditEvent{EventType: auditEventSignInFailure, Provider: a.hint, AttemptID: a.id, State: st.Kind, Reason: reason}, nil)
	m.notify(st)
	return nil
}

// abandon tells the client to drop a detached attempt. It runs after the manager lock is
// released; for attempts the client resolved itself the call finds nothing to drop.
func (m *Manager) abandon(a *signInAttempt) {
	if a.hasCode {
		m.client.Abandon(a.code)
	}
}

// expireAttempt runs on the attempt timer. An attempt that already completed is not a
// protocol violation here.
func (m *Manager) expireAttempt(id string) {
	m.mu.Lock()
	current := m.attempt != nil && m.attempt.id == id && !m.closed
	m.mu.Unlock()
	if !current {
		return
	}
	_ = m.finishFailure(context.Background(), id, provider.ReasonTimeout)
}

func (m *Manager) recordFailure(ctx context.Context, a *signInAttempt, reason provider.Reason, now time.Time) {
	m.metrics.Observe(MetricSignInLatency, now.Sub(a.started))
	switch reason {
	case provider.ReasonCancelled:
		m.metrics.Inc(MetricSignInCancelled)
		return
	case provider.ReasonTimeout:
		m.metrics.Inc(MetricSignInTimeout)
	default:
		m.metrics.Inc(MetricSignInFailure)
	}

	if m.limiter == nil {
		return
	}
	if _, err := m.limiter.IncrementSignIn(ctx, throttleScope(a.hint)); err != nil {
		m.logger.Warn().Err(err).Msg("sign-in throttle increment failed")
	}
}

func (m *Manager) protocolViolation(ctx context.Context, id string, outcome string) {
	m.metrics.Inc(MetricProtocolViolation)
	m.logger.Warn().Str("attempt", id).Str("outcome", outcome).Msg("sign-in outcome without a matching attempt ignored")
	m.emitAudit(ctx, AuditEvent{
		EventType: auditEventSignInProtocolViolation,
		AttemptID: id,
		State:     m.State().Kind,
		Metadata:  map[string]string{"outcome": outcome},
	}, ErrProtocolViolation)
}

// attemptCallbacks binds client callbacks to one attempt. Outcomes for an attempt that is
// no longer current are ignored.
type attemptCallbacks struct {
	m  *Manager
	id string
}

func (c *attemptCallbacks) OnSuccess(profile provider.Profile, tok provider.Token) {
	_ = c.m.finishSuccess(context.Background(), c.id, profile, tok)
}

func (c *attemptCallbacks) OnFailure(reason provider.Reason) {
	_ = c.m.finishFailure(context.Background(), c.id, reason)
}
