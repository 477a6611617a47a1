package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/temmyjay001/agency-service/internal/metrics"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Use(s.securityHeadersMiddleware)

	r.Get("/health", s.healthHandler)
	if s.db != nil {
		r.Get("/health/db", s.healthDBHandler)
	}
	r.Get("/health/n8n", s.relayHandlers.HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	// Signed by the automation engine, not by a user
	r.Post("/webhooks/n8n", s.callbackHandlers.N8NCallbackHandler)

	// Dashboard routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware.UserAuthMiddleware)

		r.Post("/trigger", s.relayHandlers.TriggerHandler)

		r.Route("/credits", func(r chi.Router) {
			r.Post("/use", s.creditHandlers.UseCreditsHandler)
			r.Post("/add", s.creditHandlers.AddCreditsHandler)
			r.Get("/balance", s.creditHandlers.GetBalanceHandler)
			r.Get("/history", s.creditHandlers.GetHistoryHandler)
			r.Get("/packages", s.creditHandlers.ListPackagesHandler)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/leads", s.leadHandlers.SubmitLeadHandler)
		r.Post("/auth/login", s.authHandlers.LoginHandler)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.UserAuthMiddleware)

			r.Get("/auth/me", s.authHandlers.GetCurrentUserHandler)

			// Metered actions
			r.Post("/ai/query", s.meteringHandlers.AIQueryHandler)
			r.Post("/products", s.meteringHandlers.CreateProductHandler)
			r.Post("/products/{productId}/publish", s.meteringHandlers.PublishProductHandler)
		})
	})

	return r
}
