// internal/metering/service_test.go
package metering

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/temmyjay001/agency-service/internal/credits"
	"github.com/temmyjay001/agency-service/internal/relay"
)

type spyRelay struct {
	mu       sync.Mutex
	result   relay.Result
	actions  []string
	payloads []map[string]any
}

func (s *spyRelay) Trigger(ctx context.Context, action string, payload map[string]any) relay.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	s.payloads = append(s.payloads, payload)
	return s.result
}

func (s *spyRelay) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) UseCredits(ctx context.Context, req credits.UseCreditsRequest) (*credits.UseResult, error) {
	args := m.Called(req)
	result, _ := args.Get(0).(*credits.UseResult)
	return result, args.Error(1)
}

func (m *mockGate) Refund(ctx context.Context, debit credits.Transaction) (*credits.AddResult, error) {
	args := m.Called(debit)
	result, _ := args.Get(0).(*credits.AddResult)
	return result, args.Error(1)
}

func newCreditService(allocation int64) *credits.Service {
	return credits.NewService(credits.NewMemoryStore(allocation), credits.Options{DefaultAllocation: allocation})
}

var testCatalog = NewCatalog(5, 10, 3)

func TestExecute_Completed(t *testing.T) {
	gate := newCreditService(1250)
	spy := &spyRelay{result: relay.Result{Success: true, Data: map[string]any{"answer": "hi"}}}
	service := NewService(gate, spy, false)

	outcome, err := service.Execute(context.Background(), "u1", testCatalog.AIQuery, map[string]any{"prompt": "hello"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, outcome.Status)
	assert.Equal(t, int64(1245), outcome.NewBalance)
	assert.Equal(t, map[string]any{"answer": "hi"}, outcome.Result)
	require.NotNil(t, outcome.Transaction)
	assert.Equal(t, "AI Assistant Query", outcome.Transaction.Reason)
	assert.Equal(t, ActionAIQuery, outcome.Transaction.WorkflowID)

	require.Equal(t, 1, spy.calls())
	assert.Equal(t, ActionAIQuery, spy.actions[0])
	assert.Equal(t, "hello", spy.payloads[0]["prompt"])
	assert.Equal(t, "u1", spy.payloads[0]["userId"])
	assert.Equal(t, outcome.Transaction.ID, spy.payloads[0]["transactionId"])
}

func TestExecute_RejectedSkipsRelay(t *testing.T) {
	gate := newCreditService(3)
	spy := &spyRelay{result: relay.Result{Success: true}}
	service := NewService(gate, spy, false)

	outcome, err := service.Execute(context.Background(), "u1", testCatalog.AIQuery, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, outcome.Status)
	require.NotNil(t, outcome.Rejection)
	assert.Equal(t, int64(3), outcome.Rejection.CurrentBalance)
	assert.Equal(t, int64(5), outcome.Rejection.Required)
	assert.Equal(t, 0, spy.calls())
}

func TestExecute_RelayFailureKeepsDebitByDefault(t *testing.T) {
	gate := newCreditService(100)
	spy := &spyRelay{result: relay.Result{Success: false, Error: "printify.products.create failed: 500 boom"}}
	service := NewService(gate, spy, false)

	outcome, err := service.Execute(context.Background(), "u1", testCatalog.ProductCreate, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusRelayFailed, outcome.Status)
	assert.False(t, outcome.Refunded)
	assert.Equal(t, int64(90), outcome.NewBalance)
	assert.Contains(t, outcome.Error, "500 boom")

	balance, err := gate.GetBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(90), balance.RemainingCredits)
}

func TestExecute_RelayFailureRefunds(t *testing.T) {
	gate := newCreditService(100)
	spy := &spyRelay{result: relay.Result{Success: false, Error: "request timed out"}}
	service := NewService(gate, spy, true)

	outcome, err := service.Execute(context.Background(), "u1", testCatalog.ProductPublish, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusRelayFailed, outcome.Status)
	assert.True(t, outcome.Refunded)
	assert.Equal(t, int64(100), outcome.NewBalance)

	history, err := gate.GetHistory(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Equal(t, 2, history.Total)
	assert.Equal(t, credits.TypeCredit, history.Transactions[0].Type)
	assert.Equal(t, "Refund: Listing Publish", history.Transactions[0].Reason)
}

func TestExecute_RefundFailureStillReportsRelayFailure(t *testing.T) {
	debit := &credits.Transaction{ID: "t1", UserID: "u1", Type: credits.TypeDebit, Amount: 3}
	gate := new(mockGate)
	gate.On("UseCredits", mock.Anything).Return(&credits.UseResult{Success: true, Transaction: debit, NewBalance: 7}, nil)
	gate.On("Refund", *debit).Return(nil, errors.New("store down"))

	service := NewService(gate, &spyRelay{result: relay.Result{Success: false, Error: "boom"}}, true)

	outcome, err := service.Execute(context.Background(), "u1", testCatalog.ProductPublish, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusRelayFailed, outcome.Status)
	assert.False(t, outcome.Refunded)
	assert.Equal(t, int64(7), outcome.NewBalance)
	gate.AssertExpectations(t)
}

func TestExecute_GateError(t *testing.T) {
	gate := new(mockGate)
	gate.On("UseCredits", mock.Anything).Return(nil, errors.New("store down"))
	spy := &spyRelay{}

	outcome, err := NewService(gate, spy, false).Execute(context.Background(), "u1", testCatalog.AIQuery, nil)
	assert.Nil(t, outcome)
	assert.ErrorContains(t, err, "store down")
	assert.Equal(t, 0, spy.calls())
}
