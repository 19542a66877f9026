// Package api serves the node driver over HTTP.
//
// Routes:
//
//	GET  /healthz                      connection check
//	GET  /metrics                      Prometheus metrics
//	GET  /api/v1/nodes                 list nodes
//	GET  /api/v1/nodes/{uuid}          node details
//	POST /api/v1/nodes/{uuid}/{action} reboot, destroy, start, shutdown, suspend, resume
//	GET  /api/v1/operations            operation journal (?uuid=&limit=)
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/driver"
	"github.com/jbweber/lvnode/internal/journal"
)

// NodeService is the part of the driver the API uses.
// *driver.Driver satisfies it.
type NodeService interface {
	ListNodes(ctx context.Context) ([]*compute.Node, error)
	NodeDetails(ctx context.Context, node *compute.Node) (*compute.NodeDetails, error)
	Do(ctx context.Context, op driver.Operation, node *compute.Node) (bool, error)
	Ping() error
}

// History reads the operation journal. *journal.Store satisfies it.
type History interface {
	List(ctx context.Context, f journal.Filter) ([]journal.Entry, error)
}

// Server holds the API dependencies.
type Server struct {
	nodes    NodeService
	history  History
	gatherer prometheus.Gatherer
	secret   []byte
	log      logr.Logger
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the operations endpoint.
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithJWTSecret requires an HS256 bearer token on /api/v1.
func WithJWTSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithLogger sets the request logger.
func WithLogger(log logr.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a Server for nodes.
func New(nodes NodeService, opts ...Option) *Server {
	s := &Server{
		nodes:   nodes,
		log:     logr.Discard(),
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the root router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.Get("/healthz", s.healthHandler)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if len(s.secret) > 0 {
			r.Use(s.requireToken)
		}
		r.Get("/nodes", s.listNodesHandler)
		r.Get("/nodes/{uuid}", s.nodeDetailsHandler)
		r.Post("/nodes/{uuid}/{action}", s.nodeActionHandler)
		r.Get("/operations", s.operationsHandler)
	})

	return r
}

// requestLogger logs each request through logr, and hands the request
// logger to handlers via the context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := s.log.WithValues("requestID", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logr.NewContext(r.Context(), log)))

		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
