// internal/credits/types.go
package credits

import (
	"encoding/json"
	"errors"
	"time"
)

type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100

	// MaxCreditAmount bounds a single debit or top-up.
	MaxCreditAmount int64 = 1_000_000_000
	// MaxTotalCredits bounds an account's lifetime total. It keeps every
	// amount and balance exactly representable as a JSON number.
	MaxTotalCredits int64 = 1_000_000_000_000

	InsufficientCreditsMessage = "Insufficient credits"
)

var (
	ErrAccountNotFound = errors.New("credit account not found")
	ErrInvalidAmount   = errors.New("amount must be a positive integer")
	ErrInvalidUserID   = errors.New("userId is required")
	ErrAmountTooLarge  = errors.New("amount must be at most 1000000000")

	ErrCreditLimitExceeded = errors.New("top-up would exceed the account credit limit")
	ErrTransactionConflict = errors.New("transactionId is already used by another account")
)

// Account is the persisted per-user balance. Remaining credits are derived,
// never stored, so they cannot drift from total and used.
type Account struct {
	UserID       string    `json:"userId"`
	TotalCredits int64     `json:"totalCredits"`
	UsedCredits  int64     `json:"usedCredits"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a Account) Remaining() int64 {
	return a.TotalCredits - a.UsedCredits
}

func (a Account) Balance() Balance {
	return Balance{
		TotalCredits:     a.TotalCredits,
		UsedCredits:      a.UsedCredits,
		RemainingCredits: a.Remaining(),
	}
}

type Balance struct {
	TotalCredits     int64 `json:"totalCredits"`
	UsedCredits      int64 `json:"usedCredits"`
	RemainingCredits int64 `json:"remainingCredits"`
}

// Transaction is one append-only ledger entry.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	Reason       string          `json:"reason"`
	WorkflowID   string          `json:"workflowId,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	BalanceAfter int64           `json:"balanceAfter"`
}

// SignedAmount is the effect of the entry on the remaining balance.
func (t Transaction) SignedAmount() int64 {
	if t.Type == TypeDebit {
		return -t.Amount
	}
	return t.Amount
}

// Entry is what the service asks a store to apply.
type Entry struct {
	ID         string
	UserID     string
	Amount     int64
	Reason     string
	WorkflowID string
	Timestamp  time.Time
}

// Mutation reports the outcome of a store write. For a debit Applied=false
// means the balance was insufficient and nothing changed. For a credit it
// means the entry ID already existed and Transaction is the original entry.
type Mutation struct {
	Applied     bool
	Transaction Transaction
	Account     Account
}

// Request types

type UseCreditsRequest struct {
	UserID     string `json:"userId" validate:"required,max=128"`
	Amount     int64  `json:"amount" validate:"gt=0,lte=1000000000"`
	Reason     string `json:"reason" validate:"required,max=255"`
	WorkflowID string `json:"workflowId,omitempty" validate:"max=128"`
}

type AddCreditsRequest struct {
	UserID        string `json:"userId" validate:"required,max=128"`
	Amount        int64  `json:"amount" validate:"gt=0,lte=1000000000"`
	Reason        string `json:"reason" validate:"required,max=255"`
	TransactionID string `json:"transactionId,omitempty" validate:"max=128"`
}

// Response types

// UseResult is the discriminated outcome of a check-and-debit. On rejection
// it carries the shortfall instead of a transaction.
type UseResult struct {
	Success        bool
	Transaction    *Transaction
	NewBalance     int64
	Error          string
	CurrentBalance int64
	Required       int64
}

func (r UseResult) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success     bool         `json:"success"`
			Transaction *Transaction `json:"transaction"`
			NewBalance  int64        `json:"newBalance"`
		}{true, r.Transaction, r.NewBalance})
	}

	return json.Marshal(struct {
		Success        bool   `json:"success"`
		Error          string `json:"error"`
		CurrentBalance int64  `json:"currentBalance"`
		Required       int64  `json:"required"`
	}{false, r.Error, r.CurrentBalance, r.Required})
}

type AddResult struct {
	Success     bool         `json:"success"`
	Transaction *Transaction `json:"transaction"`
	NewBalance  int64        `json:"newBalance"`
	Duplicate   bool         `json:"duplicate,omitempty"`
}

type History struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
}
