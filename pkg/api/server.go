// Package api implements the Manager's HTTP control plane: node
// registration and telemetry ingest, business and template lifecycle,
// and fleet queries, routed with chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cuemby/orbit/pkg/business"
	"github.com/cuemby/orbit/pkg/log"
	"github.com/cuemby/orbit/pkg/metrics"
	"github.com/cuemby/orbit/pkg/metricscache"
	"github.com/cuemby/orbit/pkg/store"
)

// Server is the Manager's HTTP control plane.
type Server struct {
	store    store.Store
	cache    *metricscache.Cache
	business *business.Manager
	router   chi.Router
	http     *http.Server
}

// NewServer wires a chi router over the given store/cache/business
// manager and registers every route in the Manager's HTTP API.
func NewServer(addr string, s store.Store, cache *metricscache.Cache, mgr *business.Manager) *Server {
	srv := &Server{
		store:    s,
		cache:    cache,
		business: mgr,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Post("/api/register", srv.handleRegister)
	r.Post("/api/heartbeat/{node_id}", srv.handleHeartbeat)
	r.Post("/api/report", srv.handleReport)

	r.Get("/api/nodes", srv.handleListNodes)
	r.Get("/api/nodes/{id}", srv.handleGetNode)
	r.Get("/api/nodes/{id}/resources/{kind}", srv.handleNodeResource)

	r.Route("/api/businesses", func(r chi.Router) {
		r.Get("/", srv.handleListBusinesses)
		r.Post("/", srv.handleDeployBusiness)
		r.Post("/template/{tid}", srv.handleDeployBusinessFromTemplate)
		r.Get("/{id}", srv.handleGetBusiness)
		r.Delete("/{id}", srv.handleDeleteBusiness)
		r.Post("/{id}/stop", srv.handleStopBusiness)
		r.Post("/{id}/restart", srv.handleRestartBusiness)
		r.Post("/{bid}/components/{cid}/deploy", srv.handleDeployComponent)
		r.Post("/{bid}/components/{cid}/stop", srv.handleStopComponent)
	})

	r.Route("/api/templates/components", func(r chi.Router) {
		r.Get("/", srv.handleListComponentTemplates)
		r.Post("/", srv.handleUpsertComponentTemplate)
		r.Get("/{id}", srv.handleGetComponentTemplate)
		r.Put("/{id}", srv.handleUpsertComponentTemplate)
		r.Delete("/{id}", srv.handleDeleteComponentTemplate)
	})

	r.Route("/api/templates/businesses", func(r chi.Router) {
		r.Get("/", srv.handleListBusinessTemplates)
		r.Post("/", srv.handleUpsertBusinessTemplate)
		r.Get("/{id}", srv.handleGetBusinessTemplate)
		r.Put("/{id}", srv.handleUpsertBusinessTemplate)
		r.Delete("/{id}", srv.handleDeleteBusinessTemplate)
	})

	r.Get("/healthz", metrics.HealthHandler())
	r.Get("/readyz", metrics.ReadyHandler())
	r.Get("/livez", metrics.LivenessHandler())
	r.Handle("/metrics", metrics.Handler())

	srv.router = r
	srv.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Router exposes the underlying chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// ListenAndServe starts the HTTP server; it blocks until Shutdown is
// called or the server fails.
func (s *Server) ListenAndServe() error {
	apiLog := log.WithComponent("api")
	apiLog.Info().Str("addr", s.http.Addr).Msg("listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		metrics.APIRequestsTotal.WithLabelValues(r.URL.Path, http.StatusText(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
		reqLog := log.WithComponent("api")
		reqLog.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
