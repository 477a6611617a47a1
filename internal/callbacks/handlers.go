// internal/callbacks/handlers.go
package callbacks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/credits"
	"github.com/temmyjay001/agency-service/internal/relay"
	"github.com/temmyjay001/agency-service/pkg/api"
	cV "github.com/temmyjay001/agency-service/pkg/validator"
)

const (
	ActionCreditsAdd = "credits.add"

	maxBodyBytes = 1 << 20
)

// CreditAdder applies a confirmed top-up.
type CreditAdder interface {
	AddCredits(ctx context.Context, req credits.AddCreditsRequest) (*credits.AddResult, error)
}

// CallbackRequest is a signed call from the automation engine back into
// the service.
type CallbackRequest struct {
	Action        string `json:"action" validate:"required"`
	UserID        string `json:"userId"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
	TransactionID string `json:"transactionId"`
}

// creditsAddPayload requires a transaction id so redelivered payment
// webhooks cannot credit twice.
type creditsAddPayload struct {
	UserID        string `json:"userId" validate:"required,max=128"`
	Amount        int64  `json:"amount" validate:"gt=0,lte=1000000000"`
	Reason        string `json:"reason" validate:"required,max=255"`
	TransactionID string `json:"transactionId" validate:"required,max=128"`
}

type Handlers struct {
	credits   CreditAdder
	secret    string
	tolerance time.Duration
	now       func() time.Time
	validator *validator.Validate
}

func NewHandlers(adder CreditAdder, secret string, tolerance time.Duration) *Handlers {
	return &Handlers{
		credits:   adder,
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
		validator: cV.GetValidator(),
	}
}

// N8NCallbackHandler verifies the callback signature over the raw body
// before anything else is read from it. Outbound relay signatures are not
// accepted here.
func (h *Handlers) N8NCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		api.WriteErrorResponse(w, http.StatusServiceUnavailable, "callbacks are not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		api.WriteBadRequestResponse(w, "unable to read request body")
		return
	}

	err = relay.VerifyCallback(h.secret,
		r.Header.Get(relay.HeaderTimestamp), body, r.Header.Get(relay.HeaderSignature),
		h.tolerance, h.now())
	if err != nil {
		// the reason stays in the logs, callers only learn that it failed
		logrus.WithField("remote_addr", r.RemoteAddr).Warnf("Rejected n8n callback: %v", err)
		api.WriteUnauthorizedResponse(w, "invalid signature")
		return
	}

	var req CallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		api.WriteBadRequestResponse(w, "invalid JSON payload")
		return
	}

	switch req.Action {
	case ActionCreditsAdd:
		h.addCredits(w, r, req)
	default:
		api.WriteBadRequestResponse(w, "unsupported action")
	}
}

func (h *Handlers) addCredits(w http.ResponseWriter, r *http.Request, req CallbackRequest) {
	payload := creditsAddPayload{
		UserID:        req.UserID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		TransactionID: req.TransactionID,
	}
	if err := h.validator.Struct(payload); err != nil {
		api.WriteValidationErrorResponse(w, err)
		return
	}

	result, err := h.credits.AddCredits(r.Context(), credits.AddCreditsRequest{
		UserID:        payload.UserID,
		Amount:        payload.Amount,
		Reason:        payload.Reason,
		TransactionID: payload.TransactionID,
	})
	switch {
	case errors.Is(err, credits.ErrTransactionConflict):
		api.WriteConflictResponse(w, err.Error())
		return
	case errors.Is(err, credits.ErrCreditLimitExceeded):
		api.WriteBadRequestResponse(w, err.Error())
		return
	case err != nil:
		logrus.Errorf("Failed to apply credits.add callback: %v", err)
		api.WriteInternalErrorResponse(w, "internal server error")
		return
	}

	api.WriteSuccessResponse(w, http.StatusOK, result)
}
