package token

import "errors"

var (
	// ErrMalformed is returned when a token looks like a JWT but cannot be decoded.
	ErrMalformed = errors.New("malformed token")
	// ErrUnverified is returned when a configured key, issuer or audience check fails.
	ErrUnverified = errors.New("token verification failed")
	// ErrOpaque is returned by Profile for tokens that carry no claims.
	ErrOpaque = errors.New("token carries no claims")
)
