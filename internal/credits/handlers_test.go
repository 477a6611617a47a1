// internal/credits/handlers_test.go
package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers(allocation int64) *Handlers {
	service, _ := newTestService(allocation)
	return NewHandlers(service, DefaultPackages)
}

func doRequest(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestUseCreditsHandler(t *testing.T) {
	tests := []struct {
		name           string
		allocation     int64
		body           string
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name:           "debits balance",
			allocation:     1250,
			body:           `{"userId":"u1","amount":5,"reason":"AI Assistant Query","workflowId":"wf_9"}`,
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["success"])
				assert.Equal(t, float64(1245), body["newBalance"])
				txn := body["transaction"].(map[string]any)
				assert.Equal(t, "debit", txn["type"])
				assert.Equal(t, float64(1245), txn["balanceAfter"])
				assert.Equal(t, "wf_9", txn["workflowId"])
			},
		},
		{
			name:           "insufficient credits",
			allocation:     3,
			body:           `{"userId":"u1","amount":5,"reason":"AI Assistant Query"}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, map[string]any{
					"success":        false,
					"error":          "Insufficient credits",
					"currentBalance": float64(3),
					"required":       float64(5),
				}, body)
			},
		},
		{
			name:           "negative amount",
			allocation:     100,
			body:           `{"userId":"u1","amount":-5,"reason":"r"}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "validation failed", body["error"])
			},
		},
		{
			name:           "fractional amount",
			allocation:     100,
			body:           `{"userId":"u1","amount":1.5,"reason":"r"}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "invalid JSON payload", body["error"])
			},
		},
		{
			name:           "missing reason",
			allocation:     100,
			body:           `{"userId":"u1","amount":5}`,
			expectedStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "validation failed", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(tt.allocation)
			rec := doRequest(h.UseCreditsHandler, http.MethodPost, "/credits/use", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			tt.check(t, body)
		})
	}
}

func TestAddCreditsHandler(t *testing.T) {
	h := newTestHandlers(1000)

	rec := doRequest(h.AddCreditsHandler, http.MethodPost, "/credits/add",
		`{"userId":"u1","amount":250,"reason":"Growth pack","transactionId":"pay_1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1250), body["newBalance"])

	// replay answers 200 with the original transaction
	rec = doRequest(h.AddCreditsHandler, http.MethodPost, "/credits/add",
		`{"userId":"u1","amount":250,"reason":"Growth pack","transactionId":"pay_1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1250), body["newBalance"])
	assert.Equal(t, true, body["duplicate"])

	rec = doRequest(h.AddCreditsHandler, http.MethodPost, "/credits/add", `{"userId":"u1","amount":0,"reason":"r"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCreditsHandler_Rejections(t *testing.T) {
	tests := []struct {
		name           string
		allocation     int64
		seed           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "amount above single top-up limit",
			allocation:     1000,
			body:           `{"userId":"u1","amount":9223372036854775807,"reason":"r"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation failed",
		},
		{
			name:           "account at credit ceiling",
			allocation:     MaxTotalCredits,
			body:           `{"userId":"u1","amount":1,"reason":"r"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  ErrCreditLimitExceeded.Error(),
		},
		{
			name:           "transaction id owned by another user",
			allocation:     1000,
			seed:           `{"userId":"alice","amount":500,"reason":"r","transactionId":"pay_1"}`,
			body:           `{"userId":"u1","amount":100,"reason":"r","transactionId":"pay_1"}`,
			expectedStatus: http.StatusConflict,
			expectedError:  ErrTransactionConflict.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(tt.allocation)
			if tt.seed != "" {
				rec := doRequest(h.AddCreditsHandler, http.MethodPost, "/credits/add", tt.seed)
				require.Equal(t, http.StatusOK, rec.Code)
			}

			rec := doRequest(h.AddCreditsHandler, http.MethodPost, "/credits/add", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.expectedError, body["error"])

			balance, err := h.service.GetBalance(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.allocation, balance.RemainingCredits)
		})
	}
}

func TestGetBalanceHandler(t *testing.T) {
	h := newTestHandlers(1000)

	rec := doRequest(h.GetBalanceHandler, http.MethodGet, "/credits/balance?userId=u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"success":true,"balance":{"totalCredits":1000,"usedCredits":0,"remainingCredits":1000}}`,
		rec.Body.String())

	rec = doRequest(h.GetBalanceHandler, http.MethodGet, "/credits/balance", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHistoryHandler(t *testing.T) {
	h := newTestHandlers(1000)

	for i := 0; i < 3; i++ {
		rec := doRequest(h.UseCreditsHandler, http.MethodPost, "/credits/use",
			`{"userId":"u1","amount":1,"reason":"AI Assistant Query"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(h.GetHistoryHandler, http.MethodGet, "/credits/history?userId=u1&limit=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success      bool          `json:"success"`
		Transactions []Transaction `json:"transactions"`
		Total        int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Transactions, 2)
	assert.Equal(t, int64(997), body.Transactions[0].BalanceAfter)
	assert.Equal(t, int64(998), body.Transactions[1].BalanceAfter)
}

func TestListPackagesHandler(t *testing.T) {
	h := newTestHandlers(1000)

	rec := doRequest(h.ListPackagesHandler, http.MethodGet, "/credits/packages", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"starter"`)
	assert.Contains(t, rec.Body.String(), `"price":"9.99"`)
}
