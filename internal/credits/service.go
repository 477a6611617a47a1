// internal/credits/service.go
package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/events"
	"github.com/temmyjay001/agency-service/internal/metrics"
)

// Publisher receives credit events. Implementations must not block.
type Publisher interface {
	Publish(eventType string, data map[string]any) bool
}

type Options struct {
	DefaultAllocation   int64
	LowBalanceThreshold int64
	Publisher           Publisher
}

// Service is the credit gate. All balance rules live in the store; the
// service shapes results, emits events and records metrics.
type Service struct {
	store               Store
	publisher           Publisher
	defaultAllocation   int64
	lowBalanceThreshold int64
	now                 func() time.Time
}

func NewService(store Store, opts Options) *Service {
	return &Service{
		store:               store,
		publisher:           opts.Publisher,
		defaultAllocation:   opts.DefaultAllocation,
		lowBalanceThreshold: opts.LowBalanceThreshold,
		now:                 time.Now,
	}
}

// UseCredits checks the balance and debits it in one step. An insufficient
// balance is a rejection result, not an error; errors are infrastructure
// failures only.
func (s *Service) UseCredits(ctx context.Context, req UseCreditsRequest) (*UseResult, error) {
	if err := validateEntry(req.UserID, req.Amount); err != nil {
		return nil, err
	}

	mutation, err := s.store.Debit(ctx, Entry{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		WorkflowID: req.WorkflowID,
		Timestamp:  s.now().UTC(),
	})
	if err != nil {
		metrics.CreditOperations.WithLabelValues(string(TypeDebit), "error").Inc()
		return nil, fmt.Errorf("failed to debit credits: %w", err)
	}

	if !mutation.Applied {
		metrics.CreditOperations.WithLabelValues(string(TypeDebit), "rejected").Inc()
		logrus.WithFields(logrus.Fields{
			"user_id":  req.UserID,
			"required": req.Amount,
			"balance":  mutation.Account.Remaining(),
		}).Info("Credit debit rejected: insufficient credits")

		return &UseResult{
			Success:        false,
			Error:          InsufficientCreditsMessage,
			CurrentBalance: mutation.Account.Remaining(),
			Required:       req.Amount,
		}, nil
	}

	metrics.CreditOperations.WithLabelValues(string(TypeDebit), "applied").Inc()
	metrics.CreditsMoved.WithLabelValues(string(TypeDebit)).Add(float64(req.Amount))

	txn := mutation.Transaction
	newBalance := mutation.Account.Remaining()
	logrus.WithFields(logrus.Fields{
		"user_id":        req.UserID,
		"transaction_id": txn.ID,
		"amount":         req.Amount,
		"new_balance":    newBalance,
	}).Infof("Debited credits: %s", req.Reason)

	if s.crossedLowBalance(newBalance+req.Amount, newBalance) {
		s.publish(events.EventTypeCreditsLowBalance, map[string]any{
			"userId":           req.UserID,
			"remainingCredits": newBalance,
			"threshold":        s.lowBalanceThreshold,
		})
	}

	return &UseResult{
		Success:     true,
		Transaction: &txn,
		NewBalance:  newBalance,
	}, nil
}

// AddCredits tops up unconditionally. A repeated TransactionID returns the
// original entry with Duplicate set and changes nothing.
func (s *Service) AddCredits(ctx context.Context, req AddCreditsRequest) (*AddResult, error) {
	if err := validateEntry(req.UserID, req.Amount); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.TransactionID)
	if id == "" {
		id = uuid.NewString()
	}

	mutation, err := s.store.Credit(ctx, Entry{
		ID:        id,
		UserID:    req.UserID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		metrics.CreditOperations.WithLabelValues(string(TypeCredit), "error").Inc()
		return nil, fmt.Errorf("failed to add credits: %w", err)
	}

	txn := mutation.Transaction
	if !mutation.Applied {
		metrics.CreditOperations.WithLabelValues(string(TypeCredit), "duplicate").Inc()
		logrus.WithField("transaction_id", id).Info("Credit top-up already applied")
		return &AddResult{
			Success:     true,
			Transaction: &txn,
			NewBalance:  mutation.Account.Remaining(),
			Duplicate:   true,
		}, nil
	}

	metrics.CreditOperations.WithLabelValues(string(TypeCredit), "applied").Inc()
	metrics.CreditsMoved.WithLabelValues(string(TypeCredit)).Add(float64(req.Amount))

	newBalance := mutation.Account.Remaining()
	logrus.WithFields(logrus.Fields{
		"user_id":        req.UserID,
		"transaction_id": txn.ID,
		"amount":         req.Amount,
		"new_balance":    newBalance,
	}).Infof("Added credits: %s", req.Reason)

	s.publish(events.EventTypeCreditsAdded, map[string]any{
		"userId":           req.UserID,
		"transactionId":    txn.ID,
		"amount":           req.Amount,
		"reason":           req.Reason,
		"remainingCredits": newBalance,
	})

	return &AddResult{
		Success:     true,
		Transaction: &txn,
		NewBalance:  newBalance,
	}, nil
}

// Refund credits back a debit that paid for a failed action. Keyed on the
// debit's id so it applies at most once.
func (s *Service) Refund(ctx context.Context, debit Transaction) (*AddResult, error) {
	return s.AddCredits(ctx, AddCreditsRequest{
		UserID:        debit.UserID,
		Amount:        debit.Amount,
		Reason:        "Refund: " + debit.Reason,
		TransactionID: "refund_" + debit.ID,
	})
}

// GetBalance never mutates. Users without an account see the allocation
// they would start with.
func (s *Service) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}

	account, err := s.store.GetAccount(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return &Balance{
			TotalCredits:     s.defaultAllocation,
			UsedCredits:      0,
			RemainingCredits: s.defaultAllocation,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	balance := account.Balance()
	return &balance, nil
}

// GetHistory returns the ledger newest-first.
func (s *Service) GetHistory(ctx context.Context, userID string, limit int) (*History, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}

	transactions, total, err := s.store.ListTransactions(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if transactions == nil {
		transactions = []Transaction{}
	}

	return &History{Transactions: transactions, Total: total}, nil
}

func (s *Service) crossedLowBalance(before, after int64) bool {
	return s.lowBalanceThreshold > 0 && before >= s.lowBalanceThreshold && after < s.lowBalanceThreshold
}

func (s *Service) publish(eventType string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(eventType, data)
}

func validateEntry(userID string, amount int64) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxCreditAmount {
		return ErrAmountTooLarge
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
