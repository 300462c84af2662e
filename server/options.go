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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Option configures a Server.
type Option func(*config)

// WithHandlers appends handlers to the unary chain. They run after every
// built-in handler, in the order given, with the RPC handler as their tail.
func WithHandlers(hs ...onion.Handler[*interceptors.Call]) Option {
	return func(c *config) {
		c.unary = append(c.unary, hs...)
	}
}

// WithStreamHandlers appends handlers to the stream chain.
func WithStreamHandlers(hs ...onion.Handler[*interceptors.StreamCall]) Option {
	return func(c *config) {
		c.stream = append(c.stream, hs...)
	}
}

// WithRecovery hides panics behind codes.Internal instead of exposing them
// as codes.Unknown.
func WithRecovery() Option {
	return func(c *config) { c.recovery = true }
}

// WithRequestID makes sure every call carries a request ID.
func WithRequestID() Option {
	return func(c *config) { c.requestID = true }
}

// WithLogger sets the logger used by recovery and logging and enables
// per-call logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
		c.logging = true
	}
}

// WithLogging enables per-call logging through slog.Default() unless
// WithLogger supplies another logger.
func WithLogging() Option {
	return func(c *config) { c.logging = true }
}

// WithAuth rejects calls fn does not accept.
func WithAuth(fn interceptors.AuthFunc) Option {
	return func(c *config) { c.auth = fn }
}

// WithRateLimitGlobal limits all calls together to rps with the given burst.
func WithRateLimitGlobal(rps float64, burst int) Option {
	return func(c *config) {
		c.limiter = ratelimit.NewLimiter(rps, burst)
		c.perMethod = false
	}
}

// WithRateLimitPerMethod gives every method its own bucket.
func WithRateLimitPerMethod(rps float64, burst int) Option {
	return func(c *config) {
		c.limiter = ratelimit.NewLimiter(rps, burst)
		c.perMethod = true
	}
}

// WithBreaker guards the RPC handlers with a circuit breaker.
func WithBreaker(cfg breaker.Config) Option {
	return func(c *config) { c.breaker = breaker.New(cfg) }
}

// WithCacheL1 enables an in-process response cache holding up to maxCost
// entries.
func WithCacheL1(maxCost int64) Option {
	return func(c *config) { c.l1Cost = maxCost }
}

// WithCacheL2 adds a Redis response cache on an existing client. With an L1
// configured too, the two are tiered.
func WithCacheL2(rdb redis.UniversalClient) Option {
	return func(c *config) { c.l2 = cache.NewL2FromClient(rdb) }
}

// WithCacheRedisURL is WithCacheL2 for a redis:// URL.
func WithCacheRedisURL(url string) Option {
	return func(c *config) { c.l2URL = url }
}

// WithCacheTTL sets how long cached responses live. Zero means no expiry.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *config) { c.cacheTTL = ttl }
}

// WithCachedMethods lists the unary methods whose responses are cached.
// Nothing is cached without it.
func WithCachedMethods(methods ...string) Option {
	return func(c *config) { c.cachedMethods = append(c.cachedMethods, methods...) }
}

// WithOpenTelemetry opens a server span per call. A zero TracingConfig uses
// the global providers.
func WithOpenTelemetry(cfg *tracing.TracingConfig) Option {
	return func(c *config) { c.tracing = cfg }
}

// WithMetrics records chain metrics on reg under namespace. A nil reg means a
// fresh registry, served by Server.MetricsHandler.
func WithMetrics(reg *prometheus.Registry, namespace string) Option {
	return func(c *config) {
		c.metrics = true
		c.registry = reg
		c.namespace = namespace
	}
}

// WithHealth registers the standard gRPC health service.
func WithHealth() Option {
	return func(c *config) { c.health = true }
}
