package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lexicard/lexicard-api/internal/api"
	apiMiddleware "github.com/lexicard/lexicard-api/internal/api/middleware"
	"github.com/lexicard/lexicard-api/internal/platform/metrics"
)

// routerDeps are the collaborators the HTTP router needs.
type routerDeps struct {
	logger    *slog.Logger
	validator apiMiddleware.TokenValidator
	service   api.DeckAIService
	metrics   *metrics.Registry
}

// newRouter creates the application router with all routes and middleware.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(deps.logger))
	r.Use(apiMiddleware.NewMetricsMiddleware(deps.metrics))

	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.validator)
	aiHandler := api.NewAIHandler(deps.service, deps.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Route("/ai", aiHandler.Routes)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.logger.Error("failed to write health check response", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", deps.metrics.Handler())

	return r
}
