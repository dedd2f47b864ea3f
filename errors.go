package goAccount

import "errors"

var (
	// ErrSignInInProgress is returned by BeginSignIn while another attempt is in flight.
	ErrSignInInProgress = errors.New("sign-in already in progress")
	// ErrAlreadySignedIn is returned by BeginSignIn while a valid session is active.
	ErrAlreadySignedIn = errors.New("already signed in")
	// ErrNoSignInInProgress is returned by CancelSignIn when nothing is in flight.
	ErrNoSignInInProgress = errors.New("no sign-in in progress")
	// ErrSignInRateLimited is returned by BeginSignIn when the failure throttle is exhausted.
	ErrSignInRateLimited = errors.New("sign-in rate limited")
	// ErrSignInStartFailed wraps the provider error that prevented an attempt from starting.
	ErrSignInStartFailed = errors.New("sign-in start failed")
	// ErrProtocolViolation is returned when an outcome arrives for no current attempt.
	ErrProtocolViolation = errors.New("sign-in protocol violation")
	// ErrMalformedPersistedState marks a stored record missing a required field or holding
	// an undecodable value. It never escapes Restore.
	ErrMalformedPersistedState = errors.New("malformed persisted session")
	// ErrExpiredCredential marks a stored credential whose expiry has passed. It never
	// escapes Restore.
	ErrExpiredCredential = errors.New("credential expired")
	// ErrInvalidCredential is returned when a successful outcome carries an unusable credential.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrPersistFailed wraps a store write error. The in-memory session stays active.
	ErrPersistFailed = errors.New("session persist failed")
	// ErrManagerNotReady is returned after Close.
	ErrManagerNotReady = errors.New("account manager closed")
)
