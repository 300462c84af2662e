// Package server wires onion chains into a gRPC server. Built-in handlers
// run in a fixed order, outermost first:
//
//	tracing, recovery, request ID, logging, auth, rate limit, breaker, cache
//
// followed by the handlers given through WithHandlers or WithStreamHandlers,
// with the RPC handler itself as the tail.
package server

import (
	"errors"
	"net/http"

	"github.com/Keksclan/onion"
	"github.com/Keksclan/onion/cache"
	"github.com/Keksclan/onion/interceptors"
	"github.com/Keksclan/onion/internal/core"
	"github.com/Keksclan/onion/metrics"
	"github.com/Keksclan/onion/ping"
	"github.com/Keksclan/onion/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Positions of the built-in handlers. Lower values run first.
const (
	orderTracing   = 100
	orderRecovery  = 200
	orderRequestID = 300
	orderLogging   = 400
	orderAuth      = 500
	orderRateLimit = 600
	orderBreaker   = 700
	orderCache     = 800
	orderUser      = 1000
)

const defaultNamespace = "onion"

// Server is a gRPC server whose interceptors are onion chains.
//
// After construction the underlying gRPC server is available through
// [Server.GRPC] so that service implementations can be registered normally:
//
//	srv, err := server.NewServer(server.DefaultOptions()...)
//	pb.RegisterMyServiceServer(srv.GRPC(), &myImpl{})
type Server struct {
	grpcServer *grpc.Server
	cache      cache.Cache
	health     *health.Server
	gatherer   prometheus.Gatherer
	closers    []func() error
}

// NewServer applies opts and builds the server. A nil user handler or a
// cache or metrics setup failure is reported as an error.
//
// Example:
//
//	srv, err := server.NewServer(
//		server.WithRecovery(),
//		server.WithRateLimitGlobal(500, 100),
//		server.WithAuth(myAuthFunc),
//		server.WithCacheL1(10_000),
//		server.WithCachedMethods("/catalog.Catalog/Get"),
//	)
func NewServer(opts ...Option) (*Server, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	s := &Server{}
	store, err := s.buildCache(&cfg)
	if err != nil {
		return nil, err
	}
	s.cache = store

	chains, err := cfg.chains(store)
	if err != nil {
		s.close()
		return nil, err
	}

	if cfg.metrics {
		reg := cfg.registry
		if reg == nil {
			reg = prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
		ns := cfg.namespace
		if ns == "" {
			ns = defaultNamespace
		}
		rec, err := metrics.NewRecorder(reg, ns)
		if err != nil {
			s.close()
			return nil, err
		}
		chains.Unary = metrics.Chain(rec, "unary", chains.Unary)
		chains.Stream = metrics.Chain(rec, "stream", chains.Stream)
		s.gatherer = reg
	}

	s.grpcServer = grpc.NewServer(core.BuildServerOptions(chains)...)
	if cfg.health {
		s.health = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
	}
	return s, nil
}

// chains assembles the built-in handlers in their fixed order, then the user
// handlers, and composes both chains.
func (c *config) chains(store cache.Cache) (core.Chains, error) {
	var b core.MiddlewareBuilder[*interceptors.Call, *interceptors.StreamCall]

	if c.tracing != nil {
		b.Add(orderTracing,
			tracing.Server[*interceptors.Call](c.tracing),
			tracing.Server[*interceptors.StreamCall](c.tracing))
	}
	if c.recovery {
		b.Add(orderRecovery,
			interceptors.Recovery[*interceptors.Call](c.logger),
			interceptors.Recovery[*interceptors.StreamCall](c.logger))
	}
	if c.requestID {
		b.Add(orderRequestID,
			interceptors.RequestID[*interceptors.Call](),
			interceptors.RequestID[*interceptors.StreamCall]())
	}
	if c.logging {
		b.Add(orderLogging,
			interceptors.Logging[*interceptors.Call](c.logger),
			interceptors.Logging[*interceptors.StreamCall](c.logger))
	}
	if c.auth != nil {
		b.Add(orderAuth,
			interceptors.Auth[*interceptors.Call](c.auth),
			interceptors.Auth[*interceptors.StreamCall](c.auth))
	}
	if c.limiter != nil {
		if c.perMethod {
			b.Add(orderRateLimit,
				interceptors.RateLimitPerMethod[*interceptors.Call](c.limiter),
				interceptors.RateLimitPerMethod[*interceptors.StreamCall](c.limiter))
		} else {
			b.Add(orderRateLimit,
				interceptors.RateLimit[*interceptors.Call](c.limiter),
				interceptors.RateLimit[*interceptors.StreamCall](c.limiter))
		}
	}
	if c.breaker != nil {
		b.Add(orderBreaker,
			interceptors.Breaker[*interceptors.Call](c.breaker),
			interceptors.Breaker[*interceptors.StreamCall](c.breaker))
	}
	if store != nil && len(c.cachedMethods) > 0 {
		b.Add(orderCache, interceptors.Cache(store, c.cacheTTL, c.cachedMethods...), nil)
	}

	// User handlers are composed on their own so a nil entry is reported
	// with its index in the caller's list.
	if len(c.unary) > 0 {
		u, err := onion.Compose(c.unary)
		if err != nil {
			return core.Chains{}, err
		}
		b.Add(orderUser, u.Handler(), nil)
	}
	if len(c.stream) > 0 {
		st, err := onion.Compose(c.stream)
		if err != nil {
			return core.Chains{}, err
		}
		b.Add(orderUser, nil, st.Handler())
	}

	return core.Compose(&b)
}

func (s *Server) buildCache(c *config) (cache.Cache, error) {
	var l1, l2 cache.Cache

	if c.l1Cost > 0 {
		mem, err := cache.NewL1(c.l1Cost)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { mem.Close(); return nil })
		l1 = mem
	}

	l2 = c.l2
	if c.l2URL != "" {
		rc, err := cache.NewL2FromURL(c.l2URL)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, rc.Close)
		l2 = rc
	}

	switch {
	case l1 != nil && l2 != nil:
		return cache.NewTiered(l1, l2), nil
	case l1 != nil:
		return l1, nil
	default:
		return l2, nil
	}
}

func (s *Server) close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// GRPC returns the underlying *grpc.Server so callers can register services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// Cache returns the response cache, or nil if none was configured.
func (s *Server) Cache() cache.Cache {
	return s.cache
}

// Health returns the gRPC health server registered by WithHealth, or nil.
func (s *Server) Health() *health.Server {
	return s.health
}

// RegisterPing registers the built-in onion.Ping service on the underlying
// gRPC server using the supplied [ping.Handler].
func (s *Server) RegisterPing(h ping.Handler) {
	ping.Register(s.grpcServer, h)
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics from
// the registry given to WithMetrics, or the default registry otherwise.
func (s *Server) MetricsHandler() http.Handler {
	if s.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

// Close stops the gRPC server immediately and releases the caches.
func (s *Server) Close() error {
	if s.health != nil {
		s.health.Shutdown()
	}
	s.grpcServer.Stop()
	return s.close()
}
