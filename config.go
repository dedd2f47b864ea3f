package goAccount

import (
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/token"
)

// Config controls manager behavior. Zero values are replaced by [defaultConfig] only when
// the Builder is used without WithConfig.
type Config struct {
	Store   StoreConfig
	SignIn  SignInConfig
	Token   TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// StoreConfig configures the store the builder creates when only a Redis client is given.
type StoreConfig struct {
	RedisPrefix string
}

// SignInConfig controls attempt lifetime and failure throttling.
type SignInConfig struct {
	// Timeout fails an attempt with reason "timeout" when no outcome arrives in time.
	// Zero disables the timer.
	Timeout  time.Duration
	Throttle ThrottleConfig
}

// ThrottleConfig limits repeated failed sign-ins per provider. It requires Builder.WithRedis.
type ThrottleConfig struct {
	Enabled     bool
	MaxFailures int
	Cooldown    time.Duration
	RedisPrefix string
}

// TokenConfig controls how credential tokens are inspected for expiry.
type TokenConfig struct {
	SigningMethod token.SigningMethod
	Key           []byte
	Issuer        string
	Audience      string
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Store: StoreConfig{
			RedisPrefix: "ga",
		},
		SignIn: SignInConfig{
			Timeout: 5 * time.Minute,
			Throttle: ThrottleConfig{
				Enabled:     false,
				MaxFailures: 5,
				Cooldown:    15 * time.Minute,
				RedisPrefix: "ga",
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// DefaultConfig returns the configuration used by a Builder without WithConfig.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Key = cloneBytes(cfg.Token.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	if c.SignIn.Timeout < 0 {
		return errors.New("SignIn Timeout must be >= 0")
	}

	if c.SignIn.Throttle.Enabled {
		if c.SignIn.Throttle.MaxFailures <= 0 {
			return errors.New("SignIn Throttle MaxFailures must be > 0")
		}
		if c.SignIn.Throttle.Cooldown <= 0 {
			return errors.New("SignIn Throttle Cooldown must be > 0")
		}
	}

	switch c.Token.SigningMethod {
	case token.MethodNone:
		if len(c.Token.Key) > 0 {
			return errors.New("Token Key requires a SigningMethod")
		}
	case token.MethodHS256, token.MethodEd25519:
		if len(c.Token.Key) == 0 {
			return errors.New("Token SigningMethod requires Key")
		}
	default:
		return errors.New("unsupported Token SigningMethod")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
