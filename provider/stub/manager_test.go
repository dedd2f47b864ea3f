package stub_test

import (
	"context"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/provider/stub"
	"github.com/MrEthical07/goAccount/store"
)

func TestManagerSignInThroughHostAdapter(t *testing.T) {
	ctx := context.Background()
	client := stub.New(stub.Config{
		Profile: provider.Profile{AccountID: "ada@example.com", DisplayName: "Ada"},
		Token:   provider.Token{Value: "stub-token"},
	})

	var opened []provider.Request
	host := provider.HostFunc(func(_ context.Context, req provider.Request) error {
		opened = append(opened, req)
		return nil
	})

	st := store.NewMemoryStore(nil)
	m, err := goAccount.New().
		WithStore(st).
		WithProvider(client).
		WithHost(host).
		Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	if err := m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if len(opened) != 1 {
		t.Fatalf("expected host to open one request")
	}

	adapter := goAccount.NewHostAdapter(m)
	if adapter.OnActivityResult(ctx, opened[0].Code+1, provider.ResultOK, nil) {
		t.Fatalf("foreign request code consumed")
	}
	if !adapter.OnActivityResult(ctx, opened[0].Code, provider.ResultOK, nil) {
		t.Fatalf("own request code not consumed")
	}

	cred, ok := m.Credential()
	if !ok || cred.AccountID != "ada@example.com" || cred.Provider != provider.Google {
		t.Fatalf("unexpected credential %+v", cred)
	}
	fields, _ := st.ReadAll(ctx)
	if fields[store.KeyAccountToken] != "stub-token" {
		t.Fatalf("credential not persisted: %v", fields)
	}
}

func TestManagerCancelledResult(t *testing.T) {
	ctx := context.Background()
	client := stub.New(stub.Config{})
	var code provider.RequestCode
	host := provider.HostFunc(func(_ context.Context, req provider.Request) error {
		code = req.Code
		return nil
	})
	m, err := goAccount.New().
		WithStore(store.NewMemoryStore(nil)).
		WithProvider(client).
		WithHost(host).
		Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	_ = m.BeginSignIn(ctx, provider.Google)
	if !m.OnExternalResult(ctx, code, provider.ResultCanceled, nil) {
		t.Fatalf("result not consumed")
	}
	st := m.State()
	if st.Kind != goAccount.StateFailed || st.Reason != provider.ReasonCancelled {
		t.Fatalf("expected failed(cancelled), got %+v", st)
	}
}

func TestManagerReleasesStubAttemptsOnCancelAndTimeout(t *testing.T) {
	ctx := context.Background()
	client := stub.New(stub.Config{})
	host := provider.HostFunc(func(context.Context, provider.Request) error { return nil })
	m, err := goAccount.New().
		WithStore(store.NewMemoryStore(nil)).
		WithProvider(client).
		WithHost(host).
		Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	for i := 0; i < 3; i++ {
		if err := m.BeginSignIn(ctx, provider.Google); err != nil {
			t.Fatalf("begin %d: %v", i, err)
		}
		if err := m.CancelSignIn(ctx); err != nil {
			t.Fatalf("cancel %d: %v", i, err)
		}
	}
	if got := client.Pending(); got != 0 {
		t.Fatalf("expected no pending stub attempts after cancels, got %d", got)
	}

	cfg := goAccount.DefaultConfig()
	cfg.SignIn.Timeout = 20 * time.Millisecond
	timed, err := goAccount.New().
		WithConfig(cfg).
		WithStore(store.NewMemoryStore(nil)).
		WithProvider(client).
		WithHost(host).
		Build(ctx)
	if err != nil {
		t.Fatalf("build timed manager: %v", err)
	}
	defer timed.Close()

	if err := timed.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for client.Pending() != 0 || timed.State().Kind != goAccount.StateFailed {
		if time.Now().After(deadline) {
			t.Fatalf("attempt not released after timeout: pending=%d state=%s", client.Pending(), timed.State().Kind)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if reason := timed.State().Reason; reason != provider.ReasonTimeout {
		t.Fatalf("expected timeout reason, got %q", reason)
	}
}
