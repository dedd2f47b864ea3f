package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/token"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Payload keys a host may use to hand a redirect to HandleResult instead of HandleEvent.
const (
	PayloadRedirectURI = "redirect_uri"
	PayloadCode        = "code"
	PayloadState       = "state"
	PayloadError       = "error"
)

const defaultExchangeTimeout = 30 * time.Second

// Config configures one OAuth2 identity provider.
type Config struct {
	OAuth2   oauth2.Config
	Provider provider.Kind
	// UserInfoURL is queried with the access token when the token response carries no
	// id_token.
	UserInfoURL string
	// Inspector reads profile claims from the id_token. A nil Inspector reads them
	// unverified.
	Inspector       *token.Inspector
	HTTPClient      *http.Client
	ExchangeTimeout time.Duration
	Logger          zerolog.Logger
}

type pendingAuth struct {
	state    string
	code     provider.RequestCode
	verifier string
	hint     provider.Kind
	cb       provider.Callbacks
}

// Client runs the authorization-code flow with PKCE. Each attempt is keyed by a random
// state value and a request code; whichever channel delivers the redirect first
// resolves it.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	byState map[string]*pendingAuth
	byCode  map[provider.RequestCode]*pendingAuth

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ provider.Client = (*Client)(nil)

// New validates cfg and returns a [Client].
func New(cfg Config) (*Client, error) {
	if cfg.OAuth2.ClientID == "" {
		return nil, errors.New("oauth client id required")
	}
	if cfg.OAuth2.Endpoint.AuthURL == "" || cfg.OAuth2.Endpoint.TokenURL == "" {
		return nil, errors.New("oauth endpoint required")
	}
	if _, err := url.Parse(cfg.OAuth2.RedirectURL); err != nil || cfg.OAuth2.RedirectURL == "" {
		return nil, errors.New("oauth redirect url required")
	}
	if !cfg.Provider.Valid() {
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.Inspector == nil {
		in, err := token.NewInspector(token.Config{})
		if err != nil {
			return nil, err
		}
		cfg.Inspector = in
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultExchangeTimeout}
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = defaultExchangeTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:     cfg,
		logger:  cfg.Logger.With().Str("component", "oauth").Str("provider", cfg.Provider.String()).Logger(),
		byState: make(map[string]*pendingAuth),
		byCode:  make(map[provider.RequestCode]*pendingAuth),
		baseCtx: ctx,
		cancel:  cancel,
	}, nil
}

// StartSignIn registers a pending attempt and asks the host to open the authorization URL.
func (c *Client) StartSignIn(ctx context.Context, host provider.Host, hint provider.Kind, cb provider.Callbacks) (provider.RequestCode, error) {
	p := &pendingAuth{
		state:    uuid.NewString(),
		verifier: oauth2.GenerateVerifier(),
		hint:     hint,
		cb:       cb,
	}

	c.mu.Lock()
	code, err := internal.NewRequestCodeExcept(func(rc provider.RequestCode) bool {
		_, ok := c.byCode[rc]
		return ok
	})
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	p.code = code
	c.byState[p.state] = p
	c.byCode[code] = p
	c.mu.Unlock()

	authURL := c.cfg.OAuth2.AuthCodeURL(p.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(p.verifier))
	req := provider.Request{Code: code, Provider: c.cfg.Provider, URL: authURL}
	if err := host.Open(ctx, req); err != nil {
		c.remove(p)
		return 0, err
	}
	c.logger.Debug().Int("request_code", int(code)).Msg("authorization url opened")
	return code, nil
}

// HandleEvent consumes a redirect event whose URI targets the configured redirect URL and
// carries the state of a pending attempt.
func (c *Client) HandleEvent(_ context.Context, event provider.Event) bool {
	query, ok := c.redirectQuery(event.URI)
	if !ok {
		return false
	}
	p, ok := c.takeByState(query.Get(PayloadState))
	if !ok {
		return false
	}
	c.resolve(p, query)
	return true
}

// HandleResult consumes a result triple for a pending request code. The payload may carry
// the full redirect URI or its code/state/error parameters.
func (c *Client) HandleResult(_ context.Context, code provider.RequestCode, result provider.ResultCode, payload provider.Payload) bool {
	c.mu.Lock()
	p, ok := c.byCode[code]
	c.mu.Unlock()
	if !ok {
		return false
	}

	if result == provider.ResultCanceled {
		if c.remove(p) {
			p.cb.OnFailure(provider.ReasonCancelled)
		}
		return true
	}
	if result != provider.ResultOK {
		if c.remove(p) {
			p.cb.OnFailure(provider.ReasonProviderError)
		}
		return true
	}

	query := url.Values{}
	if raw := payload[PayloadRedirectURI]; raw != "" {
		if q, ok := c.redirectQuery(raw); ok {
			query = q
		}
	}
	for _, key := range []string{PayloadCode, PayloadState, PayloadError} {
		if v := payload[key]; v != "" && query.Get(key) == "" {
			query.Set(key, v)
		}
	}
	if state := query.Get(PayloadState); state != "" && state != p.state {
		c.logger.Warn().Int("request_code", int(code)).Msg("redirect state mismatch")
		if c.remove(p) {
			p.cb.OnFailure(provider.ReasonProviderError)
		}
		return true
	}
	if !c.remove(p) {
		return true
	}
	c.resolve(p, query)
	return true
}

// Abandon drops the pending attempt that issued code. A later redirect carrying its state
// is no longer consumed.
func (c *Client) Abandon(code provider.RequestCode) {
	c.mu.Lock()
	p, ok := c.byCode[code]
	c.mu.Unlock()
	if !ok {
		return
	}
	if c.remove(p) {
		c.logger.Debug().Int("request_code", int(code)).Msg("pending authorization abandoned")
	}
}

// Pending returns the number of authorizations awaiting a redirect.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byCode)
}

// Close cancels in-flight exchanges and waits for them to deliver their outcome.
func (c *Client) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Client) resolve(p *pendingAuth, query url.Values) {
	if e := query.Get(PayloadError); e != "" {
		c.logger.Info().Str("error", e).Msg("authorization rejected")
		p.cb.OnFailure(reasonForError(e))
		return
	}
	code := query.Get(PayloadCode)
	if code == "" {
		p.cb.OnFailure(provider.ReasonProviderError)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.exchange(p, code)
	}()
}

func (c *Client) exchange(p *pendingAuth, code string) {
	ctx, cancel := context.WithTimeout(c.baseCtx, c.cfg.ExchangeTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)

	tok, err := c.cfg.OAuth2.Exchange(ctx, code, oauth2.VerifierOption(p.verifier))
	if err != nil {
		reason := exchangeReason(err)
		c.logger.Warn().Err(err).Str("reason", string(reason)).Msg("code exchange failed")
		p.cb.OnFailure(reason)
		return
	}

	profile, raw, err := c.profile(ctx, tok)
	if err != nil {
		c.logger.Warn().Err(err).Msg("profile lookup failed")
		p.cb.OnFailure(exchangeReason(err))
		return
	}
	if profile.Provider == "" {
		profile.Provider = c.cfg.Provider
	}
	p.cb.OnSuccess(profile, provider.Token{Value: raw, Expiry: tok.Expiry})
}

// profile returns the identity and the credential token. An id_token is preferred for
// both; otherwise the access token is the credential and the identity comes from the
// userinfo endpoint.
func (c *Client) profile(ctx context.Context, tok *oauth2.Token) (provider.Profile, string, error) {
	if idToken, _ := tok.Extra("id_token").(string); idToken != "" {
		claims, err := c.cfg.Inspector.Profile(idToken)
		if err != nil {
			return provider.Profile{}, "", err
		}
		return provider.Profile{
			AccountID:   claims.AccountID(),
			DisplayName: claims.Name,
			AvatarURL:   claims.Picture,
		}, idToken, nil
	}

	if c.cfg.UserInfoURL == "" {
		return provider.Profile{}, tok.AccessToken, nil
	}
	info, err := c.userInfo(ctx, tok)
	if err != nil {
		return provider.Profile{}, "", err
	}
	return info, tok.AccessToken, nil
}

type userInfoResponse struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (c *Client) userInfo(ctx context.Context, tok *oauth2.Token) (provider.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return provider.Profile{}, err
	}
	resp, err := c.cfg.OAuth2.Client(ctx, tok).Do(req)
	if err != nil {
		return provider.Profile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return provider.Profile{}, &oauth2.RetrieveError{Response: resp, ErrorCode: "userinfo_" + http.StatusText(resp.StatusCode)}
	}

	var body userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return provider.Profile{}, &oauth2.RetrieveError{Response: resp, ErrorCode: "userinfo_decode"}
	}
	accountID := body.Email
	if accountID == "" {
		accountID = body.Subject
	}
	return provider.Profile{AccountID: accountID, DisplayName: body.Name, AvatarURL: body.Picture}, nil
}

func (c *Client) redirectQuery(raw string) (url.Values, bool) {
	got, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	want, err := url.Parse(c.cfg.OAuth2.RedirectURL)
	if err != nil {
		return nil, false
	}
	if got.Scheme != want.Scheme || got.Host != want.Host || got.Path != want.Path {
		return nil, false
	}
	return got.Query(), true
}

func (c *Client) takeByState(state string) (*pendingAuth, bool) {
	if state == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byState[state]
	if !ok {
		return nil, false
	}
	delete(c.byState, p.state)
	delete(c.byCode, p.code)
	return p, true
}

// remove reports whether p was still pending.
func (c *Client) remove(p *pendingAuth) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byState[p.state]; !ok {
		return false
	}
	delete(c.byState, p.state)
	delete(c.byCode, p.code)
	return true
}

func reasonForError(code string) provider.Reason {
	if code == "access_denied" {
		return provider.ReasonDenied
	}
	return provider.ReasonProviderError
}

func exchangeReason(err error) provider.Reason {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return reasonForError(re.ErrorCode)
	}
	if errors.Is(err, token.ErrMalformed) || errors.Is(err, token.ErrUnverified) || errors.Is(err, token.ErrOpaque) {
		return provider.ReasonInvalidCredential
	}
	return provider.ReasonNetwork
}
