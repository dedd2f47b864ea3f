package goAccount

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/provider"
)

// StateKind enumerates the session lifecycle states.
type StateKind uint8

const (
	// StateNoSession means no valid credential is held.
	StateNoSession StateKind = iota
	// StateSigningIn means exactly one sign-in attempt is in flight.
	StateSigningIn
	// StateActive means a credential was restored or obtained by sign-in.
	StateActive
	// StateFailed means the last attempt failed. It behaves like StateNoSession for validity.
	StateFailed
)

// String returns the state name used in logs and audit metadata.
func (k StateKind) String() string {
	switch k {
	case StateNoSession:
		return "no_session"
	case StateSigningIn:
		return "signing_in"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name so audit records stay readable.
func (k StateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StateKind) UnmarshalText(b []byte) error {
	for _, kind := range []StateKind{StateNoSession, StateSigningIn, StateActive, StateFailed} {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// SessionState is a snapshot of the manager state. Credential is set only for
// StateActive and Reason only for StateFailed.
type SessionState struct {
	Kind       StateKind
	Credential Credential
	Reason     provider.Reason
}

// Credential is the persisted proof of an authenticated account.
//
// A zero Expiry means the expiry is unknown, which counts as not expired.
type Credential struct {
	AccountID   string
	DisplayName string
	Provider    provider.Kind
	AvatarURL   string
	Token       string
	Expiry      time.Time
}

// Valid reports whether the required fields are present and the credential has not
// expired at now. Validity is never cached.
func (c Credential) Valid(now time.Time) bool {
	if c.AccountID == "" || c.Token == "" || !c.Provider.Valid() {
		return false
	}
	return c.Expiry.IsZero() || c.Expiry.After(now)
}

// Expired reports whether the credential carries an expiry at or before now.
func (c Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !c.Expiry.After(now)
}
