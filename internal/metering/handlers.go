// internal/metering/handlers.go
package metering

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/pkg/api"
	cV "github.com/temmyjay001/agency-service/pkg/validator"
)

type Handlers struct {
	service   *Service
	catalog   Catalog
	validator *validator.Validate
}

func NewHandlers(service *Service, catalog Catalog) *Handlers {
	return &Handlers{
		service:   service,
		catalog:   catalog,
		validator: cV.GetValidator(),
	}
}

// AIQueryHandler charges for and relays an assistant prompt
func (h *Handlers) AIQueryHandler(w http.ResponseWriter, r *http.Request) {
	var req AIQueryRequest
	if !h.decode(w, r, &req) {
		return
	}

	payload := map[string]any{"prompt": req.Prompt}
	if req.Model != "" {
		payload["model"] = req.Model
	}

	h.execute(w, r, req.UserID, h.catalog.AIQuery, payload)
}

// CreateProductHandler charges for and relays a print-on-demand product creation
func (h *Handlers) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	payload := map[string]any{
		"shopId":          req.ShopID,
		"title":           req.Title,
		"description":     req.Description,
		"blueprintId":     req.BlueprintID,
		"printProviderId": req.PrintProviderID,
	}
	if len(req.Variants) > 0 {
		payload["variants"] = req.Variants
	}

	h.execute(w, r, req.UserID, h.catalog.ProductCreate, payload)
}

// PublishProductHandler charges for and relays a listing publish
func (h *Handlers) PublishProductHandler(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		api.WriteBadRequestResponse(w, "productId is required")
		return
	}

	var req PublishProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.execute(w, r, req.UserID, h.catalog.ProductPublish, map[string]any{
		"shopId":    req.ShopID,
		"productId": productID,
	})
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		api.WriteBadRequestResponse(w, "invalid JSON payload")
		return false
	}

	if err := h.validator.Struct(req); err != nil {
		api.WriteValidationErrorResponse(w, err)
		return false
	}
	return true
}

func (h *Handlers) execute(w http.ResponseWriter, r *http.Request, userID string, action Action, payload map[string]any) {
	outcome, err := h.service.Execute(r.Context(), userID, action, payload)
	if err != nil {
		logrus.Errorf("Metered action %s failed: %v", action.Name, err)
		api.WriteInternalErrorResponse(w, "internal server error")
		return
	}

	switch outcome.Status {
	case StatusRejected:
		api.WriteJSONResponse(w, http.StatusPaymentRequired, outcome.Rejection)
	case StatusRelayFailed:
		api.WriteJSONResponse(w, http.StatusBadGateway, FailedResponse{
			Success:    false,
			Error:      UnavailableMessage,
			NewBalance: outcome.NewBalance,
			Refunded:   outcome.Refunded,
		})
	default:
		api.WriteJSONResponse(w, http.StatusOK, CompletedResponse{
			Success:     true,
			Result:      outcome.Result,
			NewBalance:  outcome.NewBalance,
			Transaction: outcome.Transaction,
		})
	}
}
