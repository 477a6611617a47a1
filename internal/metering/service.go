// internal/metering/service.go
package metering

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/credits"
	"github.com/temmyjay001/agency-service/internal/relay"
)

// Gate is the part of the credit service a metered call needs.
type Gate interface {
	UseCredits(ctx context.Context, req credits.UseCreditsRequest) (*credits.UseResult, error)
	Refund(ctx context.Context, debit credits.Transaction) (*credits.AddResult, error)
}

// Service charges for an action before relaying it. Nothing is relayed when
// the charge is rejected.
type Service struct {
	gate            Gate
	relay           relay.Relayer
	refundOnFailure bool
}

func NewService(gate Gate, r relay.Relayer, refundOnFailure bool) *Service {
	return &Service{
		gate:            gate,
		relay:           r,
		refundOnFailure: refundOnFailure,
	}
}

// Execute debits action.Cost from userID, then triggers action.Name with
// payload. The returned error is reserved for credit store failures.
func (s *Service) Execute(ctx context.Context, userID string, action Action, payload map[string]any) (*Outcome, error) {
	charge, err := s.gate.UseCredits(ctx, credits.UseCreditsRequest{
		UserID:     userID,
		Amount:     action.Cost,
		Reason:     action.Reason,
		WorkflowID: action.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to charge for %s: %w", action.Name, err)
	}

	if !charge.Success {
		return &Outcome{Status: StatusRejected, Rejection: charge}, nil
	}

	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["userId"] = userID
	body["transactionId"] = charge.Transaction.ID

	result := s.relay.Trigger(ctx, action.Name, body)
	if result.Success {
		return &Outcome{
			Status:      StatusCompleted,
			Transaction: charge.Transaction,
			Result:      result.Data,
			NewBalance:  charge.NewBalance,
		}, nil
	}

	outcome := &Outcome{
		Status:      StatusRelayFailed,
		Transaction: charge.Transaction,
		NewBalance:  charge.NewBalance,
		Error:       result.Error,
	}

	logger := logrus.WithFields(logrus.Fields{
		"action":         action.Name,
		"user_id":        userID,
		"transaction_id": charge.Transaction.ID,
	})
	logger.Warnf("Metered action failed after debit: %s", result.Error)

	if !s.refundOnFailure {
		return outcome, nil
	}

	// the caller may already be gone, the refund must still land
	refund, err := s.gate.Refund(context.WithoutCancel(ctx), *charge.Transaction)
	if err != nil {
		logger.Errorf("Failed to refund credits: %v", err)
		return outcome, nil
	}

	outcome.Refunded = true
	outcome.NewBalance = refund.NewBalance
	return outcome, nil
}
