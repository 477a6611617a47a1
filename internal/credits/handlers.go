// internal/credits/handlers.go
package credits

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/pkg/api"
	cV "github.com/temmyjay001/agency-service/pkg/validator"
)

type Handlers struct {
	service   *Service
	packages  []Package
	validator *validator.Validate
}

func NewHandlers(service *Service, packages []Package) *Handlers {
	return &Handlers{
		service:   service,
		packages:  packages,
		validator: cV.GetValidator(),
	}
}

// UseCreditsHandler runs the check-and-debit. Rejections answer 400 with
// the shortfall.
func (h *Handlers) UseCreditsHandler(w http.ResponseWriter, r *http.Request) {
	var req UseCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequestResponse(w, "invalid JSON payload")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		api.WriteValidationErrorResponse(w, err)
		return
	}

	result, err := h.service.UseCredits(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if !result.Success {
		api.WriteJSONResponse(w, http.StatusBadRequest, result)
		return
	}

	api.WriteJSONResponse(w, http.StatusOK, result)
}

// AddCreditsHandler tops up a balance
func (h *Handlers) AddCreditsHandler(w http.ResponseWriter, r *http.Request) {
	var req AddCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequestResponse(w, "invalid JSON payload")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		api.WriteValidationErrorResponse(w, err)
		return
	}

	result, err := h.service.AddCredits(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	api.WriteJSONResponse(w, http.StatusOK, result)
}

// GetBalanceHandler returns the balance for ?userId=
func (h *Handlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.GetBalance(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	api.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"balance": balance,
	})
}

// GetHistoryHandler returns the ledger newest-first for ?userId=&limit=
func (h *Handlers) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	history, err := h.service.GetHistory(r.Context(), r.URL.Query().Get("userId"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	api.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"transactions": history.Transactions,
		"total":        history.Total,
	})
}

// ListPackagesHandler returns the credit package catalog
func (h *Handlers) ListPackagesHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"packages": h.packages,
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidUserID), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountTooLarge), errors.Is(err, ErrCreditLimitExceeded):
		api.WriteBadRequestResponse(w, err.Error())
	case errors.Is(err, ErrTransactionConflict):
		api.WriteConflictResponse(w, err.Error())
	default:
		logrus.Errorf("Credit operation failed: %v", err)
		api.WriteInternalErrorResponse(w, "internal server error")
	}
}
