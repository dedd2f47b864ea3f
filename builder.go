package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/provider"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNoHost is returned by the default host when the builder was given none.
var ErrNoHost = errors.New("no sign-in host configured")

// Builder assembles a [Manager]. A Builder can be used once.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	store    store.Store
	client   provider.Client
	host     provider.Host
	listener func(SessionState)

	auditSink AuditSink
	logger    zerolog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the configuration. The builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the session store. It takes precedence over a store derived from WithRedis.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client used by the sign-in throttle, and by a [store.RedisStore]
// when no explicit store is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProvider sets the identity provider client. It is required.
func (b *Builder) WithProvider(client provider.Client) *Builder {
	b.client = client
	return b
}

// WithHost sets the surface provider clients launch sign-in from.
func (b *Builder) WithHost(host provider.Host) *Builder {
	b.host = host
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for validity checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithStateListener registers fn to be called after every state transition. fn runs
// outside the manager lock and may call back into the manager.
func (b *Builder) WithStateListener(fn func(SessionState)) *Builder {
	b.listener = fn
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the sign-in latency histogram. It has no effect unless
// metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires dependencies and restores the persisted
// session once before returning.
func (b *Builder) Build(ctx context.Context) (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.client == nil {
		return nil, errors.New("provider client required")
	}

	st := b.store
	if st == nil {
		if b.redis == nil {
			return nil, errors.New("session store or redis client required")
		}
		st = store.NewRedisStore(b.redis, cfg.Store.RedisPrefix)
	}

	if cfg.SignIn.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("SignIn Throttle requires redis client")
	}

	inspector, err := token.NewInspector(token.Config{
		SigningMethod: cfg.Token.SigningMethod,
		Key:           cloneBytes(cfg.Token.Key),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
	})
	if err != nil {
		return nil, err
	}

	host := b.host
	if host == nil {
		host = provider.HostFunc(func(context.Context, provider.Request) error {
			return ErrNoHost
		})
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	logger := b.logger.With().Str("component", "account").Logger()

	m := &Manager{
		config:    cfg,
		store:     st,
		client:    b.client,
		host:      host,
		inspector: inspector,
		listener:  b.listener,
		logger:    logger,
		now:       clock,
		metrics:   NewMetrics(cfg.Metrics),
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink, logger.With().Str("subsystem", "audit").Logger()),
		state:     SessionState{Kind: StateNoSession},
	}

	if cfg.SignIn.Throttle.Enabled {
		m.limiter = rate.New(b.redis, rate.Config{
			Prefix:      cfg.SignIn.Throttle.RedisPrefix,
			MaxFailures: cfg.SignIn.Throttle.MaxFailures,
			Cooldown:    cfg.SignIn.Throttle.Cooldown,
		})
	}

	b.built = true

	m.Restore(ctx)
	return m, nil
}
