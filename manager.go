package goAccount

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
	"github.com/rs/zerolog"
)

// Manager owns the session lifecycle of one client: it restores the persisted credential,
// runs at most one sign-in attempt at a time, and persists the credential a successful
// attempt produces.
//
// Manager is safe for concurrent use. Outcomes may arrive from any goroutine.
type Manager struct {
	config    Config
	store     store.Store
	client    provider.Client
	host      provider.Host
	inspector *token.Inspector
	limiter   *rate.Limiter
	listener  func(SessionState)
	logger    zerolog.Logger
	now       func() time.Time
	metrics   *Metrics
	audit     *auditDispatcher

	mu      sync.Mutex
	state   SessionState
	attempt *signInAttempt
	closed  bool
}

// signInAttempt is the bookkeeping for the in-flight attempt. It exists only while the
// state is StateSigningIn.
type signInAttempt struct {
	id      string
	hint    provider.Kind
	code    provider.RequestCode
	hasCode bool
	started time.Time
	timer   *time.Timer
}

// State returns a copy of the current state.
func (m *Manager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HasActiveSession reports whether the manager is active and its credential is still
// valid now.
func (m *Manager) HasActiveSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked()
}

// Credential returns a copy of the active credential.
func (m *Manager) Credential() (Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.activeLocked() {
		return Credential{}, false
	}
	return m.state.Credential, true
}

func (m *Manager) activeLocked() bool {
	return m.state.Kind == StateActive && m.state.Credential.Valid(m.now())
}

// Restore rebuilds the session from the store.
//
// Any missing required field, undecodable value or expired credential yields
// StateNoSession; the stored record is left untouched. A store read error also yields
// StateNoSession. While a sign-in attempt is in flight the store is not read and the
// current state is returned.
func (m *Manager) Restore(ctx context.Context) SessionState {
	m.mu.Lock()
	if m.state.Kind == StateSigningIn {
		st := m.state
		m.mu.Unlock()
		return st
	}

	prev := m.state
	next, cred, err := m.readPersistedLocked(ctx)
	m.state = next
	m.mu.Unlock()

	switch {
	case err == nil && next.Kind == StateActive:
		m.metrics.Inc(MetricRestoreActive)
		m.logger.Debug().Str("account", cred.AccountID).Str("provider", cred.Provider.String()).Msg("session restored")
		m.emitAudit(ctx, AuditEvent{EventType: auditEventSessionRestored, Success: true, AccountID: cred.AccountID, Provider: cred.Provider, State: next.Kind}, nil)
	case err == nil:
		m.metrics.Inc(MetricRestoreNoSession)
	case errors.Is(err, ErrExpiredCredential):
		m.metrics.Inc(MetricRestoreExpired)
		m.logger.Info().Str("account", cred.AccountID).Time("expiry", cred.Expiry).Msg("stored credential expired")
		m.emitAudit(ctx, AuditEvent{EventType: auditEventSessionRestoreRejected, AccountID: cred.AccountID, Provider: cred.Provider, State: next.Kind}, err)
	case errors.Is(err, ErrMalformedPersistedState):
		m.metrics.Inc(MetricRestoreMalformed)
		m.logger.Warn().Err(err).Msg("stored session malformed")
		m.emitAudit(ctx, AuditEvent{EventType: auditEventSessionRestoreRejected, State: next.Kind}, err)
	default:
		m.metrics.Inc(MetricRestoreStoreError)
		m.logger.Error().Err(err).Msg("session store read failed")
		m.emitAudit(ctx, AuditEvent{EventType: auditEventSessionRestoreRejected, State: next.Kind}, err)
	}

	if next != prev {
		m.notify(next)
	}
	return next
}

// readPersistedLocked returns the state the stored record supports, the decoded
// credential when there was one, and the reason the record was rejected.
func (m *Manager) readPersistedLocked(ctx context.Context) (SessionState, Credential, error) {
	fields, err := m.store.ReadAll(ctx)
	if err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			return SessionState{Kind: StateNoSession}, Credential{}, errors.Join(ErrMalformedPersistedState, err)
		}
		return SessionState{Kind: StateNoSession}, Credential{}, err
	}
	if len(fields) == 0 {
		return SessionState{Kind: StateNoSession}, Credential{}, nil
	}

	cred, err := decodeCredential(fields, m.inspector)
	if err != nil {
		return SessionState{Kind: StateNoSession}, Credential{}, err
	}
	if cred.Expired(m.now()) {
		return SessionState{Kind: StateNoSession}, cred, ErrExpiredCredential
	}
	return SessionState{Kind: StateActive, Credential: cred}, cred, nil
}

// OnExternalResult routes a platform result triple to the provider client. It returns
// false without side effects when no attempt is in flight or code was not issued for the
// current attempt; such results belong to another subsystem.
func (m *Manager) OnExternalResult(ctx context.Context, code provider.RequestCode, result provider.ResultCode, payload provider.Payload) bool {
	m.mu.Lock()
	routed := m.state.Kind == StateSigningIn &&
		m.attempt != nil &&
		m.attempt.hasCode &&
		m.attempt.code == code
	m.mu.Unlock()

	if !routed {
		m.metrics.Inc(MetricExternalUnrouted)
		m.logger.Debug().Int("request_code", int(code)).Msg("external result not routed")
		return false
	}
	m.metrics.Inc(MetricExternalRouted)
	return m.client.HandleResult(ctx, code, result, payload)
}

// OnExternalEvent routes a provider event to the client while an attempt is in flight and
// returns whether the client consumed it.
func (m *Manager) OnExternalEvent(ctx context.Context, event provider.Event) bool {
	m.mu.Lock()
	inFlight := m.state.Kind == StateSigningIn
	m.mu.Unlock()

	if !inFlight {
		m.metrics.Inc(MetricExternalUnrouted)
		return false
	}
	if !m.client.HandleEvent(ctx, event) {
		m.metrics.Inc(MetricExternalUnrouted)
		return false
	}
	m.metrics.Inc(MetricExternalRouted)
	return true
}

// MetricsSnapshot returns a copy of the manager counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close stops the attempt timer and drains the audit dispatcher. The in-memory state is
// kept; new sign-in attempts are rejected with [ErrManagerNotReady].
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.attempt != nil && m.attempt.timer != nil {
		m.attempt.timer.Stop()
	}
	m.mu.Unlock()

	m.audit.Close()
}

func (m *Manager) notify(st SessionState) {
	if m.listener != nil {
		m.listener(st)
	}
}
