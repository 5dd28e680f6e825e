package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"savings-circle/rosca/internal/api"
	"savings-circle/rosca/internal/logging"
	"savings-circle/rosca/internal/middleware"
)

// Per-IP budget for the public API.
const (
	rateLimitPerSecond = 5
	rateLimitBurst     = 20
)

func RegisterRoutes(deps *api.Dependencies, upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(deps.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")
	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(deps, upSince))

	limiter := middleware.NewRateLimiter(rateLimitPerSecond, rateLimitBurst, "127.0.0.1")
	RegisterAPIRoutes(r, deps, limiter)

	return r
}
