package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/k3ss-official/k3ss-ai-coder-sub002/app"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/handlers"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/middleware"
	"github.com/k3ss-official/k3ss-ai-coder-sub002/utils"
)

// defaultRequestTimeout applies when the server config leaves it unset
const defaultRequestTimeout = 90 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	timeout := deps.Config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	origins := deps.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Tracing(deps.TracerProvider))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck())
	r.Get("/readyz", handlers.ReadinessCheck(deps.Router, deps.Logger))

	rh := handlers.NewRouterHandler(deps.Router, deps.Registry, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/route", rh.HandleRoute)
		r.Post("/select", rh.HandleSelect)

		r.Get("/status", rh.HandleStatus)
		r.Get("/models", rh.HandleModels)
		r.Get("/strategies", rh.HandleStrategies)

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", rh.HandleGetMetrics)
			r.Delete("/", rh.HandleResetMetrics)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w)
	})

	return r
}
