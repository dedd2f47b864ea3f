package goAccount

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/store"
	gjwt "github.com/golang-jwt/jwt/v5"
)

func TestRestoreCompleteRecordIsActive(t *testing.T) {
	f := newManagerFixture(t, validRecord())

	st := f.m.State()
	if st.Kind != StateActive {
		t.Fatalf("expected active, got %s", st.Kind)
	}
	want := Credential{
		AccountID:   "ada@example.com",
		DisplayName: "Ada",
		Provider:    provider.Google,
		AvatarURL:   "https://example.com/ada.png",
		Token:       "opaque-token",
	}
	if st.Credential != want {
		t.Fatalf("credential mismatch: got %+v", st.Credential)
	}
	if !f.m.HasActiveSession() {
		t.Fatalf("expected active session")
	}
}

func TestRestoreMissingRequiredFieldIsNoSession(t *testing.T) {
	for _, key := range []string{store.KeyAccountName, store.KeyAccountType, store.KeyAccountToken} {
		t.Run(key, func(t *testing.T) {
			rec := validRecord()
			delete(rec, key)
			f := newManagerFixture(t, rec)

			if st := f.m.State(); st.Kind != StateNoSession {
				t.Fatalf("expected no session, got %s", st.Kind)
			}
			if f.m.HasActiveSession() {
				t.Fatalf("expected no active session")
			}
			if got := f.m.MetricsSnapshot().Counters[MetricRestoreMalformed]; got != 1 {
				t.Fatalf("expected malformed counter 1, got %d", got)
			}
		})
	}
}

func TestRestoreOptionalFieldsDefaultToEmpty(t *testing.T) {
	rec := validRecord()
	delete(rec, store.KeyAccountDisplayName)
	delete(rec, store.KeyAccountURL)
	f := newManagerFixture(t, rec)

	cred, ok := f.m.Credential()
	if !ok {
		t.Fatalf("expected active credential")
	}
	if cred.DisplayName != "" || cred.AvatarURL != "" {
		t.Fatalf("expected empty optional fields, got %+v", cred)
	}
}

func TestRestoreUnknownProviderIsNoSession(t *testing.T) {
	rec := validRecord()
	rec[store.KeyAccountType] = "MYSPACE"
	f := newManagerFixture(t, rec)
	if st := f.m.State(); st.Kind != StateNoSession {
		t.Fatalf("expected no session, got %s", st.Kind)
	}
}

func TestRestoreExpiredCredentialIsNoSessionAndKeepsRecord(t *testing.T) {
	rec := validRecord()
	rec[store.KeyAccountExpiry] = testNow.Add(-time.Minute).Format(time.RFC3339)
	f := newManagerFixture(t, rec)

	if st := f.m.State(); st.Kind != StateNoSession {
		t.Fatalf("expected no session, got %s", st.Kind)
	}
	if f.store.Writes() != 0 {
		t.Fatalf("restore must not write")
	}
	if !reflect.DeepEqual(f.store.Fields(t), rec) {
		t.Fatalf("stale record must stay in the store")
	}
	if got := f.m.MetricsSnapshot().Counters[MetricRestoreExpired]; got != 1 {
		t.Fatalf("expected expired counter 1, got %d", got)
	}
}

func TestRestoreExpiryAtNowIsExpired(t *testing.T) {
	rec := validRecord()
	rec[store.KeyAccountExpiry] = testNow.Format(time.RFC3339)
	f := newManagerFixture(t, rec)
	if st := f.m.State(); st.Kind != StateNoSession {
		t.Fatalf("expiry equal to now must be rejected, got %s", st.Kind)
	}
}

func TestRestoreUnparseableExpiryIsNoSession(t *testing.T) {
	rec := validRecord()
	rec[store.KeyAccountExpiry] = "tomorrow"
	f := newManagerFixture(t, rec)
	if st := f.m.State(); st.Kind != StateNoSession {
		t.Fatalf("expected no session, got %s", st.Kind)
	}
}

func TestRestoreReadsExpiryFromJWT(t *testing.T) {
	exp := testNow.Add(-time.Hour)
	raw, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	rec := validRecord()
	rec[store.KeyAccountToken] = raw
	f := newManagerFixture(t, rec)

	if st := f.m.State(); st.Kind != StateNoSession {
		t.Fatalf("expired JWT must be rejected, got %s", st.Kind)
	}
}

func TestRestoreStoreErrorDegradesToNoSession(t *testing.T) {
	f := newManagerFixture(t, validRecord())
	f.store.readErr = store.ErrUnavailable

	if st := f.m.Restore(context.Background()); st.Kind != StateNoSession {
		t.Fatalf("expected no session after read error, got %s", st.Kind)
	}
	if got := f.m.MetricsSnapshot().Counters[MetricRestoreStoreError]; got != 1 {
		t.Fatalf("expected store error counter 1, got %d", got)
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	f := newManagerFixture(t, validRecord())
	ctx := context.Background()

	first := f.m.Restore(ctx)
	second := f.m.Restore(ctx)
	if first != second {
		t.Fatalf("restore not idempotent: %+v vs %+v", first, second)
	}
	if f.store.Writes() != 0 {
		t.Fatalf("restore must not write")
	}
}

func TestRestoreDuringSignInDoesNotReadStore(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	reads := f.store.Reads()

	if st := f.m.Restore(ctx); st.Kind != StateSigningIn {
		t.Fatalf("expected signing in, got %s", st.Kind)
	}
	if f.store.Reads() != reads {
		t.Fatalf("restore read the store during sign-in")
	}
}

func TestBeginSignInTwiceStartsOnce(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()

	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if err := f.m.BeginSignIn(ctx, provider.Google); !errors.Is(err, ErrSignInInProgress) {
		t.Fatalf("expected ErrSignInInProgress, got %v", err)
	}
	if f.client.Starts() != 1 {
		t.Fatalf("expected one StartSignIn, got %d", f.client.Starts())
	}
	if st := f.m.State(); st.Kind != StateSigningIn {
		t.Fatalf("expected signing in, got %s", st.Kind)
	}
}

func TestBeginSignInConcurrentCallersStartOnce(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, busy int
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.m.BeginSignIn(ctx, provider.Google)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrSignInInProgress):
				busy++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || busy != 15 {
		t.Fatalf("expected 1 start and 15 rejections, got %d and %d", ok, busy)
	}
	if f.client.Starts() != 1 {
		t.Fatalf("expected one StartSignIn, got %d", f.client.Starts())
	}
}

func TestBeginSignInWhileActiveIsRejected(t *testing.T) {
	f := newManagerFixture(t, validRecord())
	if err := f.m.BeginSignIn(context.Background(), provider.Google); !errors.Is(err, ErrAlreadySignedIn) {
		t.Fatalf("expected ErrAlreadySignedIn, got %v", err)
	}
	if f.client.Starts() != 0 {
		t.Fatalf("client must not be called")
	}
}

func TestBeginSignInAfterActiveCredentialExpires(t *testing.T) {
	rec := validRecord()
	rec[store.KeyAccountExpiry] = testNow.Add(time.Minute).Format(time.RFC3339)
	f := newManagerFixture(t, rec)
	if !f.m.HasActiveSession() {
		t.Fatalf("expected active session")
	}

	f.clock.Advance(2 * time.Minute)
	if f.m.HasActiveSession() {
		t.Fatalf("validity must be re-evaluated on every query")
	}
	if err := f.m.BeginSignIn(context.Background(), provider.Google); err != nil {
		t.Fatalf("begin after expiry: %v", err)
	}
}

func TestSignInSuccessPersistsOnce(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}

	exp := testNow.Add(time.Hour)
	if err := f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: "tok-1", Expiry: exp}); err != nil {
		t.Fatalf("success: %v", err)
	}

	if st := f.m.State(); st.Kind != StateActive {
		t.Fatalf("expected active, got %s", st.Kind)
	}
	if f.store.Writes() != 1 {
		t.Fatalf("expected exactly one write, got %d", f.store.Writes())
	}
	want := store.Fields{
		store.KeyAccountName:        "ada@example.com",
		store.KeyAccountDisplayName: "Ada",
		store.KeyAccountType:        "GOOGLE",
		store.KeyAccountURL:         "https://example.com/ada.png",
		store.KeyAccountToken:       "tok-1",
		store.KeyAccountExpiry:      exp.Format(time.RFC3339),
	}
	if got := f.store.Fields(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("persisted record mismatch:\n got %v\nwant %v", got, want)
	}

	again := f.m.Restore(ctx)
	if again.Kind != StateActive || again.Credential.Token != "tok-1" {
		t.Fatalf("restore after sign-in should be active, got %+v", again)
	}
}

func TestSubSecondExpirySurvivesRestart(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	_ = f.m.BeginSignIn(ctx, provider.Google)

	exp := testNow.Add(900 * time.Millisecond)
	if err := f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: "tok-ms", Expiry: exp}); err != nil {
		t.Fatalf("success: %v", err)
	}
	if !f.m.HasActiveSession() {
		t.Fatalf("expected active session after sign-in")
	}
	if got := f.store.Fields(t)[store.KeyAccountExpiry]; got != exp.Format(time.RFC3339Nano) {
		t.Fatalf("expiry stored as %q", got)
	}

	fresh, err := New().
		WithStore(f.store).
		WithProvider(newFakeClient()).
		WithClock(f.clock.Now).
		Build(ctx)
	if err != nil {
		t.Fatalf("build fresh manager: %v", err)
	}
	defer fresh.Close()

	if !fresh.HasActiveSession() {
		t.Fatalf("fresh manager should restore the active session, got %+v", fresh.State())
	}
	if fresh.State() != f.m.State() {
		t.Fatalf("restored state differs:\n got %+v\nwant %+v", fresh.State(), f.m.State())
	}

	states := 0
	watched, err := New().
		WithStore(f.store).
		WithProvider(newFakeClient()).
		WithClock(f.clock.Now).
		WithStateListener(func(SessionState) { states++ }).
		Build(ctx)
	if err != nil {
		t.Fatalf("build watched manager: %v", err)
	}
	defer watched.Close()
	watched.Restore(ctx)
	if states != 1 {
		t.Fatalf("second restore should not report a transition, got %d notifications", states)
	}
}

func TestSignInSuccessFillsProviderFromHint(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Microsoft); err != nil {
		t.Fatalf("begin: %v", err)
	}
	profile := validProfile()
	profile.Provider = ""
	if err := f.m.OnSignInSuccess(ctx, profile, provider.Token{Value: "tok"}); err != nil {
		t.Fatalf("success: %v", err)
	}
	cred, _ := f.m.Credential()
	if cred.Provider != provider.Microsoft {
		t.Fatalf("expected provider from hint, got %q", cred.Provider)
	}
}

func TestSignInSuccessInvalidCredentialFails(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}

	err := f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: ""})
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	st := f.m.State()
	if st.Kind != StateFailed || st.Reason != provider.ReasonInvalidCredential {
		t.Fatalf("expected failed(invalid_credential), got %+v", st)
	}
	if f.store.Writes() != 0 {
		t.Fatalf("invalid credential must not be written")
	}
}

func TestSignInSuccessAlreadyExpiredTokenFails(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	err := f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: "tok", Expiry: testNow.Add(-time.Second)})
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if f.store.Writes() != 0 {
		t.Fatalf("expired credential must not be written")
	}
}

func TestSignInPersistFailureKeepsActive(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.store.writeErr = store.ErrUnavailable
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}

	err := f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: "tok"})
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
	if !f.m.HasActiveSession() {
		t.Fatalf("in-memory session must stay active")
	}
	if got := f.m.MetricsSnapshot().Counters[MetricPersistFailure]; got != 1 {
		t.Fatalf("expected persist failure counter 1, got %d", got)
	}
}

func TestSignInFailureDoesNotWrite(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.m.OnSignInFailed(ctx, provider.ReasonNetwork); err != nil {
		t.Fatalf("failed: %v", err)
	}

	st := f.m.State()
	if st.Kind != StateFailed || st.Reason != provider.ReasonNetwork {
		t.Fatalf("expected failed(network), got %+v", st)
	}
	if f.store.Writes() != 0 {
		t.Fatalf("failure must not write")
	}
	if f.m.HasActiveSession() {
		t.Fatalf("failed state must not be active")
	}

	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin from failed: %v", err)
	}
}

func TestSignInFailureEmptyReasonIsProviderError(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	_ = f.m.BeginSignIn(ctx, provider.Google)
	_ = f.m.OnSignInFailed(ctx, "")
	if st := f.m.State(); st.Reason != provider.ReasonProviderError {
		t.Fatalf("expected provider_error, got %q", st.Reason)
	}
}

func TestOutcomeOutsideSignInIsProtocolViolation(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()

	if err := f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: "tok"}); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
	if err := f.m.OnSignInFailed(ctx, provider.ReasonDenied); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
	if st := f.m.State(); st.Kind != StateNoSession {
		t.Fatalf("state must not change, got %s", st.Kind)
	}
	if f.store.Writes() != 0 {
		t.Fatalf("protocol violation must not write")
	}
	if got := f.m.MetricsSnapshot().Counters[MetricProtocolViolation]; got != 2 {
		t.Fatalf("expected 2 protocol violations, got %d", got)
	}
}

func TestStaleAttemptCallbackIsIgnored(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	stale := f.client.Callbacks(0)
	if err := f.m.CancelSignIn(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.m.BeginSignIn(ctx, provider.Google); err != nil {
		t.Fatalf("second begin: %v", err)
	}

	stale.OnSuccess(validProfile(), provider.Token{Value: "stale"})
	if st := f.m.State(); st.Kind != StateSigningIn {
		t.Fatalf("stale callback changed state to %s", st.Kind)
	}
	if f.store.Writes() != 0 {
		t.Fatalf("stale callback wrote the store")
	}

	f.client.Callbacks(1).OnSuccess(validProfile(), provider.Token{Value: "fresh"})
	cred, ok := f.m.Credential()
	if !ok || cred.Token != "fresh" {
		t.Fatalf("expected fresh credential, got %+v", cred)
	}
}

func TestCancelSignIn(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	if err := f.m.CancelSignIn(ctx); !errors.Is(err, ErrNoSignInInProgress) {
		t.Fatalf("expected ErrNoSignInInProgress, got %v", err)
	}

	_ = f.m.BeginSignIn(ctx, provider.Google)
	if err := f.m.CancelSignIn(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	st := f.m.State()
	if st.Kind != StateFailed || st.Reason != provider.ReasonCancelled {
		t.Fatalf("expected failed(cancelled), got %+v", st)
	}
}

func TestCancelSignInAbandonsClientAttempt(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()

	_ = f.m.BeginSignIn(ctx, provider.Google)
	if err := f.m.CancelSignIn(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.client.Abandoned(); len(got) != 1 || got[0] != 4242 {
		t.Fatalf("expected client to drop request code 4242, got %v", got)
	}
}

func TestAttemptEndedDuringStartIsAbandoned(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.client.onStart = func(provider.Callbacks) {
		_ = f.m.CancelSignIn(context.Background())
	}
	if err := f.m.BeginSignIn(context.Background(), provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if st := f.m.State(); st.Kind != StateFailed || st.Reason != provider.ReasonCancelled {
		t.Fatalf("expected failed(cancelled), got %+v", st)
	}
	if got := f.client.Abandoned(); len(got) != 1 || got[0] != 4242 {
		t.Fatalf("expected the issued code to be abandoned once, got %v", got)
	}
}

func TestSignInTimeout(t *testing.T) {
	states := make(chan SessionState, 8)
	f := newManagerFixture(t, nil,
		withConfig(func(cfg *Config) { cfg.SignIn.Timeout = 20 * time.Millisecond }),
		withBuilder(func(b *Builder) {
			b.WithStateListener(func(st SessionState) { states <- st })
		}),
	)
	if err := f.m.BeginSignIn(context.Background(), provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}

	st := waitForKind(t, states, StateFailed)
	if st.Reason != provider.ReasonTimeout {
		t.Fatalf("expected timeout reason, got %q", st.Reason)
	}
	if got := f.m.MetricsSnapshot().Counters[MetricSignInTimeout]; got != 1 {
		t.Fatalf("expected timeout counter 1, got %d", got)
	}

	f.client.Callbacks(0).OnSuccess(validProfile(), provider.Token{Value: "late"})
	if f.m.HasActiveSession() {
		t.Fatalf("late success after timeout must be ignored")
	}
}

func TestSignInStartFailure(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.client.startErr = errBackendDown

	err := f.m.BeginSignIn(context.Background(), provider.Google)
	if !errors.Is(err, ErrSignInStartFailed) {
		t.Fatalf("expected ErrSignInStartFailed, got %v", err)
	}
	st := f.m.State()
	if st.Kind != StateFailed || st.Reason != provider.ReasonStartFailed {
		t.Fatalf("expected failed(start_failed), got %+v", st)
	}
}

func TestSynchronousCallbackDuringStart(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.client.onStart = func(cb provider.Callbacks) {
		cb.OnSuccess(validProfile(), provider.Token{Value: "sync"})
	}
	if err := f.m.BeginSignIn(context.Background(), provider.Google); err != nil {
		t.Fatalf("begin: %v", err)
	}
	cred, ok := f.m.Credential()
	if !ok || cred.Token != "sync" {
		t.Fatalf("expected synchronous success to activate, got %+v", cred)
	}
}

func TestExternalResultRouting(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()

	if f.m.OnExternalResult(ctx, 4242, provider.ResultOK, nil) {
		t.Fatalf("result without an attempt must not be consumed")
	}

	_ = f.m.BeginSignIn(ctx, provider.Google)
	if f.m.OnExternalResult(ctx, 7, provider.ResultOK, nil) {
		t.Fatalf("foreign request code must not be consumed")
	}
	if st := f.m.State(); st.Kind != StateSigningIn {
		t.Fatalf("foreign result changed state to %s", st.Kind)
	}
	if len(f.client.Results()) != 0 {
		t.Fatalf("foreign result reached the client")
	}

	if !f.m.OnExternalResult(ctx, 4242, provider.ResultOK, provider.Payload{"k": "v"}) {
		t.Fatalf("own request code must be consumed")
	}
	if got := f.client.Results(); len(got) != 1 || got[0] != provider.ResultOK {
		t.Fatalf("client did not receive the result: %v", got)
	}

	snap := f.m.MetricsSnapshot()
	if snap.Counters[MetricExternalUnrouted] != 2 || snap.Counters[MetricExternalRouted] != 1 {
		t.Fatalf("unexpected routing counters %+v", snap.Counters)
	}
}

func TestExternalEventRouting(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	ev := provider.Event{Action: "view", URI: "app://callback"}

	if f.m.OnExternalEvent(ctx, ev) {
		t.Fatalf("event without an attempt must not be consumed")
	}
	_ = f.m.BeginSignIn(ctx, provider.Google)
	if !f.m.OnExternalEvent(ctx, ev) {
		t.Fatalf("event during sign-in should reach the client")
	}
	f.client.consumeEvents = false
	if f.m.OnExternalEvent(ctx, ev) {
		t.Fatalf("client rejection must be reported")
	}
}

func TestHostAdapterForwards(t *testing.T) {
	f := newManagerFixture(t, nil)
	h := NewHostAdapter(f.m)
	ctx := context.Background()

	if h.OnActivityResult(ctx, 4242, provider.ResultOK, nil) {
		t.Fatalf("expected false before sign-in")
	}
	_ = f.m.BeginSignIn(ctx, provider.Google)
	if !h.OnActivityResult(ctx, 4242, provider.ResultOK, nil) {
		t.Fatalf("expected adapter to forward consumed result")
	}
	if h.OnActivityResult(ctx, 1, provider.ResultOK, nil) {
		t.Fatalf("expected adapter to forward rejection")
	}
	if !h.OnNewIntent(ctx, provider.Event{Action: "view"}) {
		t.Fatalf("expected adapter to forward consumed event")
	}
}

func TestStateListenerSeesTransitions(t *testing.T) {
	var mu sync.Mutex
	var kinds []StateKind
	f := newManagerFixture(t, nil, withBuilder(func(b *Builder) {
		b.WithStateListener(func(st SessionState) {
			mu.Lock()
			kinds = append(kinds, st.Kind)
			mu.Unlock()
		})
	}))
	ctx := context.Background()
	_ = f.m.BeginSignIn(ctx, provider.Google)
	_ = f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: "tok"})

	mu.Lock()
	defer mu.Unlock()
	want := []StateKind{StateSigningIn, StateActive}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("listener saw %v, want %v", kinds, want)
	}
}

func TestCloseRejectsNewSignIn(t *testing.T) {
	f := newManagerFixture(t, nil)
	f.m.Close()
	if err := f.m.BeginSignIn(context.Background(), provider.Google); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
}

func TestSignInLatencyHistogram(t *testing.T) {
	f := newManagerFixture(t, nil)
	ctx := context.Background()
	_ = f.m.BeginSignIn(ctx, provider.Google)
	f.clock.Advance(3 * time.Second)
	_ = f.m.OnSignInSuccess(ctx, validProfile(), provider.Token{Value: "tok"})

	buckets := f.m.MetricsSnapshot().Histograms[MetricSignInLatency]
	if len(buckets) != 8 || buckets[2] != 1 {
		t.Fatalf("expected one observation in the 5s bucket, got %v", buckets)
	}
}
