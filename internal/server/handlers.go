// internal/server/handlers.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/pkg/api"
)

const version = "1.0.0"

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteSuccessResponse(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"timestamp":    time.Now().UTC(),
		"version":      version,
		"creditsStore": s.config.CreditsStore,
	})
}

func (s *Server) healthDBHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := s.db.Health(ctx)
	if err != nil {
		logrus.Errorf("Database health check failed: %v", err)
		api.WriteErrorResponse(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}

	api.WriteSuccessResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}
