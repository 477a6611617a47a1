// internal/credits/memory_store.go
package credits

import (
	"context"
	"sync"

	"github.com/im7mortal/kmutex"
)

// MemoryStore keeps accounts in process. Mutations for one user run inside
// a per-user critical section; different users never contend.
type MemoryStore struct {
	defaultAllocation int64
	locks             *kmutex.Kmutex

	mu       sync.RWMutex
	accounts map[string]Account
	ledgers  map[string][]Transaction
	byID     map[string]Transaction
}

func NewMemoryStore(defaultAllocation int64) *MemoryStore {
	return &MemoryStore{
		defaultAllocation: defaultAllocation,
		locks:             kmutex.New(),
		accounts:          make(map[string]Account),
		ledgers:           make(map[string][]Transaction),
		byID:              make(map[string]Transaction),
	}
}

func (s *MemoryStore) GetAccount(ctx context.Context, userID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (s *MemoryStore) Debit(ctx context.Context, entry Entry) (*Mutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.locks.Lock(entry.UserID)
	defer s.locks.Unlock(entry.UserID)

	account := s.getOrCreate(entry)
	if account.Remaining() < entry.Amount {
		return &Mutation{Applied: false, Account: account}, nil
	}

	account.UsedCredits += entry.Amount
	account.UpdatedAt = entry.Timestamp

	txn := newTransaction(entry, TypeDebit, account.Remaining())
	s.commit(account, txn)

	return &Mutation{Applied: true, Transaction: txn, Account: account}, nil
}

func (s *MemoryStore) Credit(ctx context.Context, entry Entry) (*Mutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.locks.Lock(entry.UserID)
	defer s.locks.Unlock(entry.UserID)

	s.mu.RLock()
	existing, duplicate := s.byID[entry.ID]
	s.mu.RUnlock()

	if duplicate && existing.UserID != entry.UserID {
		return nil, ErrTransactionConflict
	}

	account := s.getOrCreate(entry)
	if duplicate {
		return &Mutation{Applied: false, Transaction: existing, Account: account}, nil
	}

	if entry.Amount > MaxTotalCredits-account.TotalCredits {
		return nil, ErrCreditLimitExceeded
	}

	account.TotalCredits += entry.Amount
	account.UpdatedAt = entry.Timestamp

	txn := newTransaction(entry, TypeCredit, account.Remaining())
	s.commit(account, txn)

	return &Mutation{Applied: true, Transaction: txn, Account: account}, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger := s.ledgers[userID]
	total := len(ledger)
	if limit <= 0 || limit > total {
		limit = total
	}

	transactions := make([]Transaction, 0, limit)
	for i := total - 1; i >= total-limit; i-- {
		transactions = append(transactions, ledger[i])
	}
	return transactions, total, nil
}

// getOrCreate must be called with the user's key lock held.
func (s *MemoryStore) getOrCreate(entry Entry) Account {
	s.mu.RLock()
	account, ok := s.accounts[entry.UserID]
	s.mu.RUnlock()
	if ok {
		return account
	}

	return Account{
		UserID:       entry.UserID,
		TotalCredits: s.defaultAllocation,
		CreatedAt:    entry.Timestamp,
		UpdatedAt:    entry.Timestamp,
	}
}

func (s *MemoryStore) commit(account Account, txn Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.UserID] = account
	s.ledgers[account.UserID] = append(s.ledgers[account.UserID], txn)
	s.byID[txn.ID] = txn
}
