package store

import (
	"context"
	"errors"
)

// Persisted field names. They are stable across releases.
const (
	KeyAccountName        = "keyAccountName"
	KeyAccountDisplayName = "keyAccountDisplayName"
	KeyAccountType        = "keyAccountType"
	KeyAccountURL         = "keyAccountUrl"
	KeyAccountToken       = "keyAccountToken"
	KeyAccountExpiry      = "keyAccountExpiry"
)

var (
	// ErrUnavailable wraps backend transport and I/O errors.
	ErrUnavailable = errors.New("session store unavailable")
	// ErrCorrupt is returned when a persisted record cannot be decoded at all.
	ErrCorrupt = errors.New("session store corrupt")
)

// Fields maps a persisted field name to its value.
type Fields map[string]string

// Get returns the value stored under key and whether it was present.
func (f Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f[key]
	return v, ok
}

// Clone returns an independent copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Store is the durable side channel of the session manager.
type Store interface {
	ReadAll(ctx context.Context) (Fields, error)
	WriteAll(ctx context.Context, fields Fields) error
}
