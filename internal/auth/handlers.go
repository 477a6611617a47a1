// internal/auth/handlers.go
package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/temmyjay001/agency-service/pkg/api"
	cV "github.com/temmyjay001/agency-service/pkg/validator"
)

type Handlers struct {
	authService *Service
	validator   *validator.Validate
}

func NewHandlers(authService *Service) *Handlers {
	return &Handlers{
		authService: authService,
		validator:   cV.GetValidator(),
	}
}

// POST /api/v1/auth/login
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequestResponse(w, "invalid JSON payload")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		api.WriteValidationErrorResponse(w, err)
		return
	}

	loginResp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			api.WriteUnauthorizedResponse(w, "invalid email or password")
		case errors.Is(err, ErrLoginDisabled):
			api.WriteForbiddenResponse(w, "login is disabled")
		default:
			api.WriteInternalErrorResponse(w, "login failed")
		}
		return
	}

	api.WriteSuccessResponse(w, http.StatusOK, loginResp)
}

// GET /api/v1/auth/me
func (h *Handlers) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetUserClaims(r.Context())
	if !ok {
		api.WriteUnauthorizedResponse(w, "authentication required")
		return
	}

	api.WriteSuccessResponse(w, http.StatusOK, map[string]interface{}{
		"email":      claims.Email,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt,
	})
}
