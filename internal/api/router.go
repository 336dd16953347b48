package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each backend check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/transactions", s.handleDeviceTransactions)
			})
		})

		r.Get("/transactions", s.handleListTransactions)

		r.Get(wsPath(s.wsCfg.Path), s.handleWebSocket)
	})

	return r
}

// wsPath returns the configured WebSocket path, defaulting to /ws.
func wsPath(p string) string {
	if p == "" {
		return "/ws"
	}
	return p
}

// handleHealth reports the server version, schema version, and the state
// of every configured backend. Status is "degraded" when any check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	backends := make(map[string]string, len(s.checks))

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			backends[name] = err.Error()
			status = "degraded"
			continue
		}
		backends[name] = "ok"
	}

	resp := map[string]any{
		"status":     status,
		"version":    s.version,
		"devices":    s.registry.Len(),
		"backends":   backends,
		"ws_clients": s.hub.ClientCount(),
	}
	if s.schema != nil {
		if v, err := s.schema.SchemaVersion(r.Context()); err == nil {
			resp["schema_version"] = v
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
