package goAccount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeClient records every call and hands the test the callbacks of the latest attempt.
type fakeClient struct {
	mu            sync.Mutex
	starts        int
	hints         []provider.Kind
	code          provider.RequestCode
	startErr      error
	callbacks     []provider.Callbacks
	results       []provider.ResultCode
	events        []provider.Event
	consumeEvents bool
	onStart       func(cb provider.Callbacks)
	abandoned     []provider.RequestCode
}

func newFakeClient() *fakeClient {
	return &fakeClient{code: 4242, consumeEvents: true}
}

func (c *fakeClient) StartSignIn(ctx context.Context, host provider.Host, hint provider.Kind, cb provider.Callbacks) (provider.RequestCode, error) {
	c.mu.Lock()
	c.starts++
	c.hints = append(c.hints, hint)
	c.callbacks = append(c.callbacks, cb)
	onStart := c.onStart
	code, err := c.code, c.startErr
	c.mu.Unlock()

	if onStart != nil {
		onStart(cb)
	}
	if err != nil {
		return 0, err
	}
	return code, nil
}

func (c *fakeClient) HandleResult(ctx context.Context, code provider.RequestCode, result provider.ResultCode, payload provider.Payload) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	return true
}

func (c *fakeClient) HandleEvent(ctx context.Context, event provider.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.consumeEvents
}

func (c *fakeClient) Abandon(code provider.RequestCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandoned = append(c.abandoned, code)
}

func (c *fakeClient) Abandoned() []provider.RequestCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]provider.RequestCode(nil), c.abandoned...)
}

func (c *fakeClient) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *fakeClient) Callbacks(i int) provider.Callbacks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callbacks[i]
}

func (c *fakeClient) Results() []provider.ResultCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]provider.ResultCode(nil), c.results...)
}

// countingStore wraps a MemoryStore and can fail reads or writes on demand.
type countingStore struct {
	inner    *store.MemoryStore
	mu       sync.Mutex
	reads    int
	writes   int
	readErr  error
	writeErr error
}

func newCountingStore(initial store.Fields) *countingStore {
	return &countingStore{inner: store.NewMemoryStore(initial)}
}

func (s *countingStore) ReadAll(ctx context.Context) (store.Fields, error) {
	s.mu.Lock()
	s.reads++
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.ReadAll(ctx)
}

func (s *countingStore) WriteAll(ctx context.Context, fields store.Fields) error {
	s.mu.Lock()
	s.writes++
	err := s.writeErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.WriteAll(ctx, fields)
}

func (s *countingStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *countingStore) Fields(t *testing.T) store.Fields {
	t.Helper()
	f, err := s.inner.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read inner store: %v", err)
	}
	return f
}

var errBackendDown = errors.New("backend down")

func validRecord() store.Fields {
	return store.Fields{
		store.KeyAccountName:        "ada@example.com",
		store.KeyAccountDisplayName: "Ada",
		store.KeyAccountType:        "GOOGLE",
		store.KeyAccountURL:         "https://example.com/ada.png",
		store.KeyAccountToken:       "opaque-token",
	}
}

func validProfile() provider.Profile {
	return provider.Profile{
		AccountID:   "ada@example.com",
		DisplayName: "Ada",
		AvatarURL:   "https://example.com/ada.png",
		Provider:    provider.Google,
	}
}

type managerFixture struct {
	m      *Manager
	client *fakeClient
	store  *countingStore
	clock  *testClock
}

type fixtureOption func(b *Builder, cfg *Config)

func withConfig(fn func(cfg *Config)) fixtureOption {
	return func(_ *Builder, cfg *Config) { fn(cfg) }
}

func withBuilder(fn func(b *Builder)) fixtureOption {
	return func(b *Builder, _ *Config) { fn(b) }
}

func newManagerFixture(t *testing.T, initial store.Fields, opts ...fixtureOption) *managerFixture {
	t.Helper()
	f := &managerFixture{
		client: newFakeClient(),
		store:  newCountingStore(initial),
		clock:  newTestClock(),
	}

	cfg := DefaultConfig()
	cfg.SignIn.Timeout = 0
	b := New().
		WithStore(f.store).
		WithProvider(f.client).
		WithClock(f.clock.Now)
	for _, opt := range opts {
		opt(b, &cfg)
	}
	b.WithConfig(cfg)

	m, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(m.Close)
	f.m = m
	return f
}

func waitForKind(t *testing.T, ch <-chan SessionState, kind StateKind) SessionState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.Kind == kind {
				return st
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", kind)
			return SessionState{}
		}
	}
}
