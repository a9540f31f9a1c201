package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/tpfi/internal/pipeline"
	"github.com/MikeSquared-Agency/tpfi/internal/store"
)

func NewRouter(s store.Store, runner *pipeline.Runner, rescale bool, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(60))

	weights := NewWeightsHandler(runner)
	plans := NewPlansHandler(runner, rescale, logger)
	runs := NewRunsHandler(s)
	collect := NewCollectHandler(runner)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/weights/derive", weights.Derive)
		r.Post("/plans", plans.Create)
		r.Post("/itineraries/score", plans.Score)

		r.Get("/runs", runs.List)
		r.Get("/runs/{id}", runs.Get)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Post("/collect", collect.Collect)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
