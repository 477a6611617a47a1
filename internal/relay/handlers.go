// internal/relay/handlers.go
package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/pkg/api"
)

type Handlers struct {
	engine Engine
}

func NewHandlers(engine Engine) *Handlers {
	return &Handlers{engine: engine}
}

// TriggerHandler relays {action, ...data} to the engine and answers with
// {ok, result} or {ok:false, error}.
func (h *Handlers) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTriggerRequest(r)
	if err != nil {
		api.WriteJSONResponse(w, http.StatusBadRequest, TriggerResponse{OK: false, Error: err.Error()})
		return
	}

	result := h.engine.Trigger(r.Context(), req.Action, req.Payload)
	if !result.Success {
		api.WriteJSONResponse(w, http.StatusInternalServerError, TriggerResponse{OK: false, Error: result.Error})
		return
	}

	api.WriteJSONResponse(w, http.StatusOK, TriggerResponse{OK: true, Result: result.Data})
}

// HealthHandler reports whether the engine answers its health action. The
// route is public, so the failure reason only goes to the log.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	result := h.engine.Health(r.Context())

	if !result.Success {
		logrus.Warnf("n8n health check failed: %s", result.Error)
		api.WriteJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":     "unhealthy",
			"service":    "n8n",
			"error":      UnavailableMessage,
			"durationMs": result.DurationMs,
		})
		return
	}

	api.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"service":    "n8n",
		"durationMs": result.DurationMs,
	})
}

func decodeTriggerRequest(r *http.Request) (TriggerRequest, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return TriggerRequest{}, errors.New("invalid JSON payload")
	}

	action, ok := body["action"].(string)
	if !ok || action == "" {
		return TriggerRequest{}, ErrEmptyAction
	}
	delete(body, "action")

	return TriggerRequest{Action: action, Payload: body}, nil
}
