// internal/leads/handlers.go
package leads

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/relay"
	"github.com/temmyjay001/agency-service/pkg/api"
	cV "github.com/temmyjay001/agency-service/pkg/validator"
)

const ActionLeadIntake = "lead.intake"

// LeadRequest is a contact form submission from the marketing site.
type LeadRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Company string `json:"company,omitempty" validate:"max=200"`
	Message string `json:"message,omitempty" validate:"max=5000"`
	Source  string `json:"source,omitempty" validate:"max=100"`
}

type Handlers struct {
	relay     relay.Relayer
	validator *validator.Validate
}

func NewHandlers(r relay.Relayer) *Handlers {
	return &Handlers{
		relay:     r,
		validator: cV.GetValidator(),
	}
}

// SubmitLeadHandler forwards a lead to the intake workflow. Leads are free.
func (h *Handlers) SubmitLeadHandler(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequestResponse(w, "invalid JSON payload")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.validator.Struct(req); err != nil {
		api.WriteValidationErrorResponse(w, err)
		return
	}

	payload := map[string]any{
		"name":  strings.TrimSpace(req.Name),
		"email": req.Email,
	}
	for key, value := range map[string]string{"company": req.Company, "message": req.Message, "source": req.Source} {
		if value != "" {
			payload[key] = value
		}
	}

	result := h.relay.Trigger(r.Context(), ActionLeadIntake, payload)
	if !result.Success {
		logrus.Warnf("Lead intake failed: %s", result.Error)
		api.WriteBadGatewayResponse(w, relay.UnavailableMessage)
		return
	}

	api.WriteSuccessResponse(w, http.StatusAccepted, map[string]interface{}{
		"message": "Thanks, we will be in touch shortly.",
	})
}
