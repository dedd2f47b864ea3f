package goAccount

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
)

func encodeCredential(c Credential) store.Fields {
	fields := store.Fields{
		store.KeyAccountName:  c.AccountID,
		store.KeyAccountType:  c.Provider.String(),
		store.KeyAccountToken: c.Token,
	}
	if c.DisplayName != "" {
		fields[store.KeyAccountDisplayName] = c.DisplayName
	}
	if c.AvatarURL != "" {
		fields[store.KeyAccountURL] = c.AvatarURL
	}
	if !c.Expiry.IsZero() {
		fields[store.KeyAccountExpiry] = c.Expiry.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

// decodeCredential rebuilds a credential from a stored record. Every required field must
// be present and non-empty; optional fields default to empty.
func decodeCredential(fields store.Fields, inspector *token.Inspector) (Credential, error) {
	var c Credential
	for _, key := range []string{store.KeyAccountName, store.KeyAccountType, store.KeyAccountToken} {
		if v, ok := fields.Get(key); !ok || v == "" {
			return Credential{}, fmt.Errorf("%w: missing %s", ErrMalformedPersistedState, key)
		}
	}

	kind, err := provider.ParseKind(fields[store.KeyAccountType])
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrMalformedPersistedState, err)
	}

	c.AccountID = fields[store.KeyAccountName]
	c.Provider = kind
	c.Token = fields[store.KeyAccountToken]
	c.DisplayName, _ = fields.Get(store.KeyAccountDisplayName)
	c.AvatarURL, _ = fields.Get(store.KeyAccountURL)

	if raw, ok := fields.Get(store.KeyAccountExpiry); ok && raw != "" {
		exp, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Credential{}, fmt.Errorf("%w: expiry: %v", ErrMalformedPersistedState, err)
		}
		c.Expiry = exp.UTC()
		return c, nil
	}

	exp, ok, err := inspector.Expiry(c.Token)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: token: %v", ErrMalformedPersistedState, err)
	}
	if ok {
		c.Expiry = exp
	}
	return c, nil
}

// credentialFromOutcome builds the credential for a successful outcome. hint fills in the
// provider when the profile does not name one.
func credentialFromOutcome(profile provider.Profile, tok provider.Token, hint provider.Kind, inspector *token.Inspector) (Credential, error) {
	c := Credential{
		AccountID:   profile.AccountID,
		DisplayName: profile.DisplayName,
		Provider:    profile.Provider,
		AvatarURL:   profile.AvatarURL,
		Token:       tok.Value,
		Expiry:      tok.Expiry.UTC(),
	}
	if c.Provider == "" {
		c.Provider = hint
	}
	if tok.Expiry.IsZero() {
		c.Expiry = time.Time{}
		exp, ok, err := inspector.Expiry(tok.Value)
		if err != nil {
			return c, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		if ok {
			c.Expiry = exp
		}
	}
	return c, nil
}
