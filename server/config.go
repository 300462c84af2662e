package server

import (
	"log/slog"
	"time"

	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/breaker"
	"github.com/Keksclan/onion/cache"
	"github.com/Keksclan/onion/interceptors"
	"github.com/Keksclan/onion/ratelimit"
	"github.com/Keksclan/onion/tracing"
	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
)

// config holds the internal configuration assembled via functional options.
type config struct {
	recovery  bool
	requestID bool
	logger    *slog.Logger
	logging   bool
	auth      interceptors.AuthFunc
	limiter   *ratelimit.Limiter
	perMethod bool
	breaker   *breaker.Breaker
	tracing   *tracing.TracingConfig
	health    bool

	l1Cost        int64
	l2            cache.Cache
	l2URL         string
	cacheTTL      time.Duration
	cachedMethods []string

	metrics   bool
	registry  *prometheus.Registry
	namespace string

	unary  []onion.Handler[*interceptors.Call]
	stream []onion.Handler[*interceptors.StreamCall]
}

// Config is the environment-driven form of the server options. Every
// variable is read with the ONION_ prefix, e.g. ONION_RATE_LIMIT_RPS.
type Config struct {
	Recovery  bool `env:"RECOVERY" envDefault:"true"`
	RequestID bool `env:"REQUEST_ID" envDefault:"true"`
	Logging   bool `env:"LOGGING" envDefault:"false"`
	Health    bool `env:"HEALTH" envDefault:"true"`

	// Rate limiting is enabled when RateLimitRPS is positive.
	RateLimitRPS       float64 `env:"RATE_LIMIT_RPS"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"1"`
	RateLimitPerMethod bool    `env:"RATE_LIMIT_PER_METHOD"`

	// The breaker is enabled when BreakerFailures is positive.
	BreakerFailures        int           `env:"BREAKER_FAILURES"`
	BreakerOpenTimeout     time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	BreakerHalfOpenSuccess int           `env:"BREAKER_HALF_OPEN_SUCCESS" envDefault:"1"`

	CacheL1MaxCost int64         `env:"CACHE_L1_MAX_COST"`
	CacheRedisURL  string        `env:"CACHE_REDIS_URL"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"1m"`
	CachedMethods  []string      `env:"CACHED_METHODS" envSeparator:","`

	Tracing          bool   `env:"TRACING"`
	Metrics          bool   `env:"METRICS"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"onion"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ONION_"}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Options translates the configuration into server options. Tracing uses
// the global OpenTelemetry providers; metrics use a fresh registry.
func (c Config) Options() []Option {
	var opts []Option
	if c.Recovery {
		opts = append(opts, WithRecovery())
	}
	if c.RequestID {
		opts = append(opts, WithRequestID())
	}
	if c.Logging {
		opts = append(opts, WithLogging())
	}
	if c.Health {
		opts = append(opts, WithHealth())
	}
	if c.RateLimitRPS > 0 {
		if c.RateLimitPerMethod {
			opts = append(opts, WithRateLimitPerMethod(c.RateLimitRPS, c.RateLimitBurst))
		} else {
			opts = append(opts, WithRateLimitGlobal(c.RateLimitRPS, c.RateLimitBurst))
		}
	}
	if c.BreakerFailures > 0 {
		opts = append(opts, WithBreaker(breaker.Config{
			FailureThreshold:   c.BreakerFailures,
			OpenTimeout:        c.BreakerOpenTimeout,
			HalfOpenMaxSuccess: c.BreakerHalfOpenSuccess,
		}))
	}
	if c.CacheL1MaxCost > 0 {
		opts = append(opts, WithCacheL1(c.CacheL1MaxCost))
	}
	if c.CacheRedisURL != "" {
		opts = append(opts, WithCacheRedisURL(c.CacheRedisURL))
	}
	if len(c.CachedMethods) > 0 {
		opts = append(opts, WithCacheTTL(c.CacheTTL), WithCachedMethods(c.CachedMethods...))
	}
	if c.Tracing {
		opts = append(opts, WithOpenTelemetry(&tracing.TracingConfig{}))
	}
	if c.Metrics {
		opts = append(opts, WithMetrics(nil, c.MetricsNamespace))
	}
	return opts
}
