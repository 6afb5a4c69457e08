package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bluefin-ops/healthdeck/internal/api/middleware"
	"github.com/bluefin-ops/healthdeck/pkg/config"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	h := NewHandler(s.loader, s.severity, s.config)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		OK(w, map[string]any{
			"status": "ok",
			"build":  config.GetBuildInfo(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/overview", h.Overview)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Get("/trend", h.AlertTrend)
			r.Get("/filters", h.AlertFilters)
		})

		r.Route("/flows", func(r chi.Router) {
			r.Get("/", h.ListFlowRuns)
			r.Get("/stats", h.FlowRunStats)
			r.Get("/trend", h.FlowFailureTrend)
		})

		r.Post("/refresh", h.Refresh)
	})

	return r
}
