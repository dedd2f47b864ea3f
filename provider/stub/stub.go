// Package stub implements a deterministic in-process identity provider. It is used by
// tests and by hosts that need to exercise the sign-in flow without network access.
package stub

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/provider"
)

const (
	// ActionFailed is the event action that fails a pending attempt. The event carries the
	// request code in the "code" extra and the failure reason in the "reason" extra.
	ActionFailed = "stub.signin.failed"

	// PayloadAccountID overrides the configured account in a ResultOK payload.
	PayloadAccountID = "account_id"
)

// Config is the identity the stub returns for every successful attempt.
type Config struct {
	Profile provider.Profile
	Token   provider.Token
	// StartErr, when set, is returned by every StartSignIn.
	StartErr error
}

type pendingAttempt struct {
	hint provider.Kind
	cb   provider.Callbacks
}

// Client resolves attempts from result triples and events delivered by the host.
type Client struct {
	cfg Config

	mu      sync.Mutex
	pending map[provider.RequestCode]pendingAttempt
}

var _ provider.Client = (*Client)(nil)

// New returns a stub client with no pending attempts.
func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		pending: make(map[provider.RequestCode]pendingAttempt),
	}
}

// StartSignIn issues a request code and asks the host to open a stub:// URL for it.
func (c *Client) StartSignIn(ctx context.Context, host provider.Host, hint provider.Kind, cb provider.Callbacks) (provider.RequestCode, error) {
	if c.cfg.StartErr != nil {
		return 0, c.cfg.StartErr
	}

	c.mu.Lock()
	code, err := internal.NewRequestCodeExcept(func(rc provider.RequestCode) bool {
		_, ok := c.pending[rc]
		return ok
	})
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.pending[code] = pendingAttempt{hint: hint, cb: cb}
	c.mu.Unlock()

	req := provider.Request{
		Code:     code,
		Provider: hint,
		URL:      fmt.Sprintf("stub://signin/%s?code=%d", hint, code),
	}
	if err := host.Open(ctx, req); err != nil {
		c.take(code)
		return 0, err
	}
	return code, nil
}

// HandleResult resolves the attempt that issued code. ResultOK succeeds with the
// configured identity, ResultCanceled fails with "cancelled", and any other result fails
// with "provider_error".
func (c *Client) HandleResult(_ context.Context, code provider.RequestCode, result provider.ResultCode, payload provider.Payload) bool {
	p, ok := c.take(code)
	if !ok {
		return false
	}

	switch result {
	case provider.ResultOK:
		profile := c.cfg.Profile
		if profile.Provider == "" {
			profile.Provider = p.hint
		}
		if id := payload[PayloadAccountID]; id != "" {
			profile.AccountID = id
		}
		p.cb.OnSuccess(profile, c.cfg.Token)
	case provider.ResultCanceled:
		p.cb.OnFailure(provider.ReasonCancelled)
	default:
		p.cb.OnFailure(provider.ReasonProviderError)
	}
	return true
}

// HandleEvent consumes [ActionFailed] events for a pending request code.
func (c *Client) HandleEvent(_ context.Context, event provider.Event) bool {
	if event.Action != ActionFailed {
		return false
	}
	n, err := strconv.Atoi(event.Extras["code"])
	if err != nil {
		return false
	}
	p, ok := c.take(provider.RequestCode(n))
	if !ok {
		return false
	}
	p.cb.OnFailure(provider.Reason(event.Extras["reason"]))
	return true
}

// Abandon drops the attempt that issued code without resolving it.
func (c *Client) Abandon(code provider.RequestCode) {
	c.take(code)
}

// Pending returns the number of attempts awaiting an outcome.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) take(code provider.RequestCode) (pendingAttempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[code]
	if ok {
		delete(c.pending, code)
	}
	return p, ok
}
