package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// embeddedRedis selects an in-process miniredis instead of a real server.
const embeddedRedis = "mini"

type globalOptions struct {
	storeFile   string
	redisAddr   string
	redisPrefix string
	logLevel    string
	timeout     time.Duration
	audit       bool
	auditOut    io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "goaccount",
		Short: "Inspect and establish the signed-in account session",
		Long: `goaccount restores the persisted account session and can run an interactive
OAuth2 sign-in that stores the resulting credential.

The session lives in a JSON file by default; --redis-addr switches to a Redis hash
(use "mini" for an embedded, in-memory server).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.auditOut = cmd.ErrOrStderr()
		},
	}

	defaultFile, err := store.DefaultFilePath()
	if err != nil {
		defaultFile = ""
	}
	root.PersistentFlags().StringVar(&opts.storeFile, "store-file", defaultFile, "session file path")
	root.PersistentFlags().StringVar(&opts.redisAddr, "redis-addr", "", `redis address; "mini" starts an embedded server`)
	root.PersistentFlags().StringVar(&opts.redisPrefix, "redis-prefix", "ga", "redis key prefix")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "sign-in timeout")
	root.PersistentFlags().BoolVar(&opts.audit, "audit", false, "write audit records as JSON lines to stderr")

	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newSignInCmd(opts))
	return root
}

func (o *globalOptions) logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level: %w", err)
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// backend holds the store the manager runs on and whatever must be closed with it.
type backend struct {
	store  store.Store
	redis  redis.UniversalClient
	closer func()
}

func (o *globalOptions) openBackend(ctx context.Context, logger zerolog.Logger) (*backend, error) {
	if o.redisAddr == "" {
		fs, err := store.NewFileStore(o.storeFile)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("path", fs.Path()).Msg("using file store")
		return &backend{store: fs, closer: func() {}}, nil
	}

	addr := o.redisAddr
	var mr *miniredis.Miniredis
	if addr == embeddedRedis {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	closer := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}

	rs := store.NewRedisStore(client, o.redisPrefix)
	if err := rs.Ping(ctx); err != nil {
		closer()
		return nil, err
	}
	logger.Debug().Str("addr", addr).Msg("using redis store")
	return &backend{store: rs, redis: client, closer: closer}, nil
}

func (o *globalOptions) config() goAccount.Config {
	cfg := goAccount.DefaultConfig()
	cfg.Store.RedisPrefix = o.redisPrefix
	cfg.SignIn.Timeout = o.timeout
	return cfg
}

// buildManager wires a manager over the selected backend. listener may be nil.
func (o *globalOptions) buildManager(ctx context.Context, be *backend, client provider.Client, host provider.Host, logger zerolog.Logger, listener func(goAccount.SessionState)) (*goAccount.Manager, error) {
	cfg := o.config()
	b := goAccount.New().
		WithStore(be.store).
		WithProvider(client).
		WithLogger(logger)
	if host != nil {
		b.WithHost(host)
	}
	if listener != nil {
		b.WithStateListener(listener)
	}
	if o.audit && o.auditOut != nil {
		cfg.Audit.Enabled = true
		b.WithAuditSink(goAccount.NewLoggerSink(zerolog.New(o.auditOut).With().Str("stream", "audit").Logger()))
	}
	if be.redis != nil {
		cfg.SignIn.Throttle.Enabled = true
		cfg.SignIn.Throttle.RedisPrefix = o.redisPrefix
		b.WithRedis(be.redis)
	}
	return b.WithConfig(cfg).Build(ctx)
}
