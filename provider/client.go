package provider

import (
	"context"
	"time"
)

// RequestCode correlates a platform result with the sign-in attempt that issued it.
// Zero is never issued.
type RequestCode int

// ResultCode is the platform outcome attached to a result triple.
type ResultCode int

const (
	// ResultOK reports that the launched flow completed.
	ResultOK ResultCode = -1
	// ResultCanceled reports that the user backed out of the launched flow.
	ResultCanceled ResultCode = 0
)

// Reason is the failure code carried by a failed sign-in.
type Reason string

const (
	ReasonNetwork           Reason = "network"
	ReasonCancelled         Reason = "cancelled"
	ReasonTimeout           Reason = "timeout"
	ReasonDenied            Reason = "denied"
	ReasonProviderError     Reason = "provider_error"
	ReasonStartFailed       Reason = "start_failed"
	ReasonInvalidCredential Reason = "invalid_credential"
)

// Payload carries the extras attached to a result triple.
type Payload map[string]string

// Event is a provider-delivered event outside the result-code channel, such as a
// redirect URI handed to the application.
type Event struct {
	Action string
	URI    string
	Extras map[string]string
}

// Profile is the identity returned by a successful sign-in.
type Profile struct {
	AccountID   string
	DisplayName string
	AvatarURL   string
	Provider    Kind
}

// Token is the credential returned by a successful sign-in. A zero Expiry means the
// provider did not report one.
type Token struct {
	Value  string
	Expiry time.Time
}

// Request asks the host to launch the provider's sign-in surface.
type Request struct {
	Code     RequestCode
	Provider Kind
	URL      string
}

// Host is the application surface a client launches sign-in from.
type Host interface {
	Open(ctx context.Context, req Request) error
}

// HostFunc adapts a function to [Host].
type HostFunc func(ctx context.Context, req Request) error

// Open calls f.
func (f HostFunc) Open(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Callbacks receives the terminal outcome of one sign-in attempt.
type Callbacks interface {
	OnSuccess(profile Profile, token Token)
	OnFailure(reason Reason)
}

// Client is an identity provider reached through the callback contract.
type Client interface {
	// StartSignIn launches one attempt and returns the request code it issued.
	StartSignIn(ctx context.Context, host Host, hint Kind, cb Callbacks) (RequestCode, error)
	// HandleResult consumes a result triple; it reports false when the triple is not its own.
	HandleResult(ctx context.Context, code RequestCode, result ResultCode, payload Payload) bool
	// HandleEvent consumes a provider event; it reports false when the event is not its own.
	HandleEvent(ctx context.Context, event Event) bool
	// Abandon forgets the attempt that issued code after the caller ended it on its own
	// (cancel, timeout). It must not invoke callbacks and is a no-op for unknown codes.
	Abandon(code RequestCode)
}
