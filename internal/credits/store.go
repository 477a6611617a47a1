// internal/credits/store.go
package credits

import "context"

// Store persists accounts and their ledgers. Implementations must apply
// Debit as one atomic check-and-decrement per account and must never leave
// a balance change without its ledger entry.
type Store interface {
	// GetAccount is a pure read. Unknown users yield ErrAccountNotFound.
	GetAccount(ctx context.Context, userID string) (*Account, error)

	// Debit creates the account with the default allocation if needed, then
	// applies the entry only when the remaining balance covers it.
	Debit(ctx context.Context, entry Entry) (*Mutation, error)

	// Credit creates the account if needed and applies the entry
	// unconditionally, unless an entry with the same ID already exists.
	Credit(ctx context.Context, entry Entry) (*Mutation, error)

	// ListTransactions returns up to limit entries newest-first and the
	// full ledger size.
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, int, error)
}

func newTransaction(entry Entry, txnType TransactionType, balanceAfter int64) Transaction {
	return Transaction{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Type:         txnType,
		Amount:       entry.Amount,
		Reason:       entry.Reason,
		WorkflowID:   entry.WorkflowID,
		Timestamp:    entry.Timestamp,
		BalanceAfter: balanceAfter,
	}
}
