// internal/credits/postgres_store.go
package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/temmyjay001/agency-service/internal/storage"
)

const (
	insertAccountSQL = `
		INSERT INTO credit_accounts (user_id, total_credits, used_credits, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (user_id) DO NOTHING`

	selectAccountSQL = `
		SELECT user_id, total_credits, used_credits, created_at, updated_at
		FROM credit_accounts
		WHERE user_id = $1`

	// the WHERE clause is the sufficiency check; zero rows means rejection
	debitAccountSQL = `
		UPDATE credit_accounts
		SET used_credits = used_credits + $2, updated_at = $3
		WHERE user_id = $1 AND total_credits - used_credits >= $2
		RETURNING user_id, total_credits, used_credits, created_at, updated_at`

	// zero rows means the top-up would pass the ceiling in $4
	creditAccountSQL = `
		UPDATE credit_accounts
		SET total_credits = total_credits + $2, updated_at = $3
		WHERE user_id = $1 AND total_credits <= $4 - $2
		RETURNING user_id, total_credits, used_credits, created_at, updated_at`

	insertTransactionSQL = `
		INSERT INTO credit_transactions (id, user_id, type, amount, reason, workflow_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`

	selectTransactionSQL = `
		SELECT id, user_id, type, amount, reason, COALESCE(workflow_id, ''), balance_after, created_at
		FROM credit_transactions
		WHERE id = $1`

	listTransactionsSQL = `
		SELECT id, user_id, type, amount, reason, COALESCE(workflow_id, ''), balance_after, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2`

	countTransactionsSQL = `SELECT count(*) FROM credit_transactions WHERE user_id = $1`
)

// PostgresStore relies on a conditional UPDATE for the sufficiency check,
// so concurrent debits against one account serialize on the row lock.
type PostgresStore struct {
	db                *storage.DB
	defaultAllocation int64
}

func NewPostgresStore(db *storage.DB, defaultAllocation int64) *PostgresStore {
	return &PostgresStore{db: db, defaultAllocation: defaultAllocation}
}

func (s *PostgresStore) GetAccount(ctx context.Context, userID string) (*Account, error) {
	account, err := scanAccount(s.db.QueryRow(ctx, selectAccountSQL, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) Debit(ctx context.Context, entry Entry) (*Mutation, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertAccountSQL, entry.UserID, s.defaultAllocation, entry.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	account, err := scanAccount(tx.QueryRow(ctx, debitAccountSQL, entry.UserID, entry.Amount, entry.Timestamp))
	if errors.Is(err, pgx.ErrNoRows) {
		current, err := scanAccount(tx.QueryRow(ctx, selectAccountSQL, entry.UserID))
		if err != nil {
			return nil, fmt.Errorf("failed to read account: %w", err)
		}
		// rollback also discards an account created above
		return &Mutation{Applied: false, Account: *current}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit account: %w", err)
	}

	txn := newTransaction(entry, TypeDebit, account.Remaining())
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Mutation{Applied: true, Transaction: txn, Account: *account}, nil
}

func (s *PostgresStore) Credit(ctx context.Context, entry Entry) (*Mutation, error) {
	// idempotency check
	if existing, err := s.findTransaction(ctx, entry.ID); err == nil {
		return s.duplicate(ctx, entry, *existing)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check transaction id: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertAccountSQL, entry.UserID, s.defaultAllocation, entry.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	account, err := scanAccount(tx.QueryRow(ctx, creditAccountSQL, entry.UserID, entry.Amount, entry.Timestamp, MaxTotalCredits))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCreditLimitExceeded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}

	txn := newTransaction(entry, TypeCredit, account.Remaining())
	if err := insertTransaction(ctx, tx, txn); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// lost a race with the same transaction id
			tx.Rollback(ctx)
			existing, findErr := s.findTransaction(ctx, entry.ID)
			if findErr != nil {
				return nil, fmt.Errorf("failed to load duplicate transaction: %w", findErr)
			}
			return s.duplicate(ctx, entry, *existing)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Mutation{Applied: true, Transaction: txn, Account: *account}, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, countTransactionsSQL, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	if limit <= 0 || limit > total {
		limit = total
	}

	rows, err := s.db.Query(ctx, listTransactionsSQL, userID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0, limit)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, total, nil
}

func (s *PostgresStore) findTransaction(ctx context.Context, id string) (*Transaction, error) {
	return scanTransaction(s.db.QueryRow(ctx, selectTransactionSQL, id))
}

// duplicate answers a replayed top-up. Ids are global, so an id owned by
// another user is a conflict, not a replay.
func (s *PostgresStore) duplicate(ctx context.Context, entry Entry, existing Transaction) (*Mutation, error) {
	if existing.UserID != entry.UserID {
		return nil, ErrTransactionConflict
	}

	account, err := s.GetAccount(ctx, existing.UserID)
	if err != nil {
		return nil, err
	}
	return &Mutation{Applied: false, Transaction: existing, Account: *account}, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, txn Transaction) error {
	_, err := tx.Exec(ctx, insertTransactionSQL,
		txn.ID, txn.UserID, string(txn.Type), txn.Amount, txn.Reason, txn.WorkflowID, txn.BalanceAfter, txn.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	if err := row.Scan(&a.UserID, &a.TotalCredits, &a.UsedCredits, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		t       Transaction
		txnType string
	)
	if err := row.Scan(&t.ID, &t.UserID, &txnType, &t.Amount, &t.Reason, &t.WorkflowID, &t.BalanceAfter, &t.Timestamp); err != nil {
		return nil, err
	}
	t.Type = TransactionType(txnType)
	return &t, nil
}
