// Package token inspects credential tokens returned by identity providers.
//
// Tokens are opaque to the session manager except for two facts it needs: when the token
// stops being valid, and which identity it names. Both are read from JWT claims when the
// token is a JWT; any other token is treated as opaque and reports no expiry.
//
// # Architecture boundaries
//
// The inspector never issues tokens and never decides whether a session is valid. An
// expired JWT parses successfully; the caller compares the returned expiry with its clock.
package token
