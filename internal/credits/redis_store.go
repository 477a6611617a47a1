// internal/credits/redis_store.go
package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "credits:"

// Each mutation is one script so the balance check, the account update and
// the ledger append happen atomically on the server.
var (
	debitScript = redis.NewScript(`
local total, used, created
if redis.call('EXISTS', KEYS[1]) == 1 then
  total = tonumber(redis.call('HGET', KEYS[1], 'total'))
  used = tonumber(redis.call('HGET', KEYS[1], 'used'))
  created = redis.call('HGET', KEYS[1], 'created_at')
else
  total = tonumber(ARGV[2])
  used = 0
  created = ARGV[3]
end

local amount = tonumber(ARGV[1])
if total - used < amount then
  return {0, total, used, created, ''}
end

used = used + amount
local txn = cjson.decode(ARGV[4])
txn['balanceAfter'] = total - used
local encoded = cjson.encode(txn)

redis.call('HSET', KEYS[1], 'total', total, 'used', used, 'created_at', created, 'updated_at', ARGV[3])
redis.call('RPUSH', KEYS[2], encoded)
redis.call('HSET', KEYS[3], txn['id'], encoded)
return {1, total, used, created, encoded}
`)

	creditScript = redis.NewScript(`
local total, used, created
if redis.call('EXISTS', KEYS[1]) == 1 then
  total = tonumber(redis.call('HGET', KEYS[1], 'total'))
  used = tonumber(redis.call('HGET', KEYS[1], 'used'))
  created = redis.call('HGET', KEYS[1], 'created_at')
else
  total = tonumber(ARGV[2])
  used = 0
  created = ARGV[3]
end

local txn = cjson.decode(ARGV[4])
local existing = redis.call('HGET', KEYS[3], txn['id'])
if existing then
  return {0, total, used, created, existing}
end

local amount = tonumber(ARGV[1])
if amount > tonumber(ARGV[5]) - total then
  return {-1, total, used, created, ''}
end

total = total + amount
txn['balanceAfter'] = total - used
local encoded = cjson.encode(txn)

redis.call('HSET', KEYS[1], 'total', total, 'used', used, 'created_at', created, 'updated_at', ARGV[3])
redis.call('RPUSH', KEYS[2], encoded)
redis.call('HSET', KEYS[3], txn['id'], encoded)
return {1, total, used, created, encoded}
`)
)

// RedisStore keeps one hash per account, one list per ledger and a global
// id index used for idempotent top-ups. It targets a single redis node.
// Values stay below MaxTotalCredits so cjson encodes them as plain integers.
type RedisStore struct {
	client            redis.UniversalClient
	defaultAllocation int64
}

func NewRedisStore(client redis.UniversalClient, defaultAllocation int64) *RedisStore {
	return &RedisStore{client: client, defaultAllocation: defaultAllocation}
}

func accountKey(userID string) string { return redisKeyPrefix + "account:" + userID }
func ledgerKey(userID string) string  { return redisKeyPrefix + "ledger:" + userID }
func idsKey() string                  { return redisKeyPrefix + "transaction_ids" }

func (s *RedisStore) GetAccount(ctx context.Context, userID string) (*Account, error) {
	fields, err := s.client.HGetAll(ctx, accountKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrAccountNotFound
	}

	var account Account
	account.UserID = userID
	if _, err := fmt.Sscan(fields["total"], &account.TotalCredits); err != nil {
		return nil, fmt.Errorf("corrupt account %s: %w", userID, err)
	}
	if _, err := fmt.Sscan(fields["used"], &account.UsedCredits); err != nil {
		return nil, fmt.Errorf("corrupt account %s: %w", userID, err)
	}
	account.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	account.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])

	return &account, nil
}

func (s *RedisStore) Debit(ctx context.Context, entry Entry) (*Mutation, error) {
	return s.run(ctx, debitScript, entry, TypeDebit)
}

func (s *RedisStore) Credit(ctx context.Context, entry Entry) (*Mutation, error) {
	mutation, err := s.run(ctx, creditScript, entry, TypeCredit)
	if err != nil {
		return nil, err
	}
	if !mutation.Applied && mutation.Transaction.UserID != entry.UserID {
		return nil, ErrTransactionConflict
	}
	return mutation, nil
}

func (s *RedisStore) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, int, error) {
	key := ledgerKey(userID)

	total, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	if limit <= 0 || int64(limit) > total {
		limit = int(total)
	}
	if limit == 0 {
		return []Transaction{}, int(total), nil
	}

	raw, err := s.client.LRange(ctx, key, -int64(limit), -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	transactions := make([]Transaction, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var txn Transaction
		if err := json.Unmarshal([]byte(raw[i]), &txn); err != nil {
			return nil, 0, fmt.Errorf("corrupt ledger entry: %w", err)
		}
		transactions = append(transactions, txn)
	}

	return transactions, int(total), nil
}

func (s *RedisStore) run(ctx context.Context, script *redis.Script, entry Entry, txnType TransactionType) (*Mutation, error) {
	encoded, err := json.Marshal(newTransaction(entry, txnType, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	now := entry.Timestamp.UTC().Format(time.RFC3339Nano)
	keys := []string{accountKey(entry.UserID), ledgerKey(entry.UserID), idsKey()}

	reply, err := script.Run(ctx, s.client, keys,
		entry.Amount, s.defaultAllocation, now, string(encoded), MaxTotalCredits).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", txnType, err)
	}

	return parseScriptReply(entry.UserID, now, reply)
}

func parseScriptReply(userID, now string, reply []interface{}) (*Mutation, error) {
	if len(reply) != 5 {
		return nil, fmt.Errorf("unexpected script reply of length %d", len(reply))
	}

	applied, ok1 := reply[0].(int64)
	total, ok2 := reply[1].(int64)
	used, ok3 := reply[2].(int64)
	created, ok4 := reply[3].(string)
	encoded, ok5 := reply[4].(string)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return nil, errors.New("unexpected script reply types")
	}

	if applied == -1 {
		return nil, ErrCreditLimitExceeded
	}

	account := Account{UserID: userID, TotalCredits: total, UsedCredits: used}
	account.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	account.UpdatedAt, _ = time.Parse(time.RFC3339Nano, now)

	mutation := &Mutation{Applied: applied == 1, Account: account}
	if encoded != "" {
		if err := json.Unmarshal([]byte(encoded), &mutation.Transaction); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry: %w", err)
		}
	}
	return mutation, nil
}
