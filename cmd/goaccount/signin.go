package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	exportprom "github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/provider/oauth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

type signInOptions struct {
	provider     string
	clientID     string
	clientSecret string
	authURL      string
	tokenURL     string
	userInfoURL  string
	redirect     string
	scopes       []string
	metrics      bool
}

func newSignInCmd(opts *globalOptions) *cobra.Command {
	so := &signInOptions{}
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with an OAuth2 provider and persist the session",
		Long: `signin runs the OAuth2 authorization-code flow with PKCE.

A loopback HTTP listener receives the provider's redirect. Open the printed URL in a
browser; the command returns once the attempt succeeds, fails, times out, or is
interrupted. With --metrics the listener also serves /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSignIn(cmd, opts, so)
		},
	}

	cmd.Flags().StringVar(&so.provider, "provider", string(provider.Google), "identity provider kind")
	cmd.Flags().StringVar(&so.clientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringVar(&so.clientSecret, "client-secret", "", "OAuth2 client secret (optional with PKCE)")
	cmd.Flags().StringVar(&so.authURL, "auth-url", "", "authorization endpoint")
	cmd.Flags().StringVar(&so.tokenURL, "token-url", "", "token endpoint")
	cmd.Flags().StringVar(&so.userInfoURL, "userinfo-url", "", "userinfo endpoint used when no id_token is returned")
	cmd.Flags().StringVar(&so.redirect, "redirect", "http://127.0.0.1:8765/callback", "loopback redirect URL; port 0 picks a free port")
	cmd.Flags().StringSliceVar(&so.scopes, "scope", []string{"openid", "email", "profile"}, "requested scopes")
	cmd.Flags().BoolVar(&so.metrics, "metrics", false, "serve Prometheus metrics on the loopback listener")
	_ = cmd.MarkFlagRequired("client-id")
	_ = cmd.MarkFlagRequired("auth-url")
	_ = cmd.MarkFlagRequired("token-url")
	return cmd
}

func runSignIn(cmd *cobra.Command, opts *globalOptions, so *signInOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	kind, err := provider.ParseKind(so.provider)
	if err != nil {
		return err
	}

	redirect, err := url.Parse(so.redirect)
	if err != nil || redirect.Scheme != "http" || redirect.Host == "" {
		return fmt.Errorf("invalid --redirect %q", so.redirect)
	}
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}
	redirect.Host = ln.Addr().String()

	be, err := opts.openBackend(ctx, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer be.closer()

	client, err := oauth.New(oauth.Config{
		OAuth2: oauth2.Config{
			ClientID:     so.clientID,
			ClientSecret: so.clientSecret,
			RedirectURL:  redirect.String(),
			Scopes:       so.scopes,
			Endpoint:     oauth2.Endpoint{AuthURL: so.authURL, TokenURL: so.tokenURL},
		},
		Provider:    kind,
		UserInfoURL: so.userInfoURL,
		Logger:      logger,
	})
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer client.Close()

	states := make(chan goAccount.SessionState, 8)
	listener := func(st goAccount.SessionState) {
		select {
		case states <- st:
		default:
		}
	}
	host := provider.HostFunc(func(_ context.Context, req provider.Request) error {
		fmt.Fprintf(out, "Open this URL to sign in:\n\n  %s\n\n", req.URL)
		return nil
	})

	m, err := opts.buildManager(ctx, be, client, host, logger, listener)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer m.Close()

	srv := &http.Server{
		Handler:           redirectMux(redirect.Path, goAccount.NewHostAdapter(m), so.metrics, m, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("redirect listener stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := m.BeginSignIn(ctx, kind); err != nil {
		if errors.Is(err, goAccount.ErrAlreadySignedIn) {
			fmt.Fprintln(out, "Already signed in.")
			printState(out, m.State(), time.Now())
			return nil
		}
		return err
	}

	st, err := waitTerminal(ctx, m, states)
	if err != nil {
		return err
	}
	printState(out, st, time.Now())
	if st.Kind != goAccount.StateActive {
		return fmt.Errorf("sign-in failed: %s", st.Reason)
	}
	return nil
}

// waitTerminal blocks until the attempt leaves StateSigningIn. Interrupting cancels the
// attempt.
func waitTerminal(ctx context.Context, m *goAccount.Manager, states <-chan goAccount.SessionState) (goAccount.SessionState, error) {
	for {
		select {
		case st := <-states:
			if st.Kind == goAccount.StateActive || st.Kind == goAccount.StateFailed {
				return st, nil
			}
		case <-ctx.Done():
			if err := m.CancelSignIn(context.Background()); err != nil && !errors.Is(err, goAccount.ErrNoSignInInProgress) {
				return goAccount.SessionState{}, err
			}
			return m.State(), nil
		}
	}
}

func redirectMux(path string, adapter *goAccount.HostAdapter, metrics bool, m *goAccount.Manager, logger zerolog.Logger) http.Handler {
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		uri := "http://" + r.Host + r.URL.RequestURI()
		if !adapter.OnNewIntent(r.Context(), provider.Event{URI: uri}) {
			logger.Debug().Str("uri", r.URL.Path).Msg("redirect not consumed")
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "Sign-in received. You can close this window.\n")
	})
	if metrics && !strings.HasPrefix(path, "/metrics") {
		mux.Handle("/metrics", exportprom.NewPrometheusExporter(m).Handler())
	}
	return mux
}
