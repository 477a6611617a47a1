// internal/testutil/helpers.go
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/temmyjay001/agency-service/internal/config"
	"github.com/temmyjay001/agency-service/internal/storage"
)

const (
	TestJWTSecret    = "test-jwt-secret-key-for-testing"
	TestSharedSecret = "test-shared-secret"
	TestWebhookPath  = "/webhook/agency"
)

// SetupTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// the credit tables. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *storage.DB {
	t.Helper()
	SkipIfShort(t)

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := TestConfig()
	cfg.DatabaseURL = url

	require.NoError(t, storage.MigrateUp(url), "Failed to migrate test database")

	db, err := storage.NewPostgresDB(cfg)
	require.NoError(t, err, "Failed to connect to test database")

	truncate := func() {
		_, err := db.Exec(context.Background(), "TRUNCATE credit_transactions, credit_accounts")
		if err != nil {
			t.Logf("Warning: Failed to truncate credit tables: %v", err)
		}
	}
	truncate()

	t.Cleanup(func() {
		truncate()
		db.Close()
	})

	return db
}

// SetupTestRedis connects to TEST_REDIS_URL and flushes the selected db on
// cleanup. The test is skipped when the variable is unset.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	SkipIfShort(t)

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	cfg := TestConfig()
	cfg.RedisURL = url

	client, err := storage.NewRedisClient(cfg)
	require.NoError(t, err, "Failed to connect to test redis")

	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// TestConfig returns a test configuration
func TestConfig() *config.Config {
	return &config.Config{
		Host:                       "localhost",
		Port:                       "8080",
		Env:                        "test",
		LogLevel:                   "error",
		DatabaseMaxConnections:     5,
		DatabaseMaxIdleTime:        time.Minute * 5,
		JWTSecret:                  TestJWTSecret,
		CreditsStore:               config.StoreMemory,
		CreditsDefaultAllocation:   1000,
		CreditsLowBalanceThreshold: 100,
		N8NWebhookPath:             TestWebhookPath,
		N8NSharedSecret:            TestSharedSecret,
		N8NTimeout:                 2 * time.Second,
		N8NCallbackTolerance:       5 * time.Minute,
		AIQueryCost:                5,
		ProductCreateCost:          10,
		ListingPublishCost:         3,
	}
}

// CapturedRequest is one request received by an Engine.
type CapturedRequest struct {
	Header http.Header
	Body   map[string]any
	Raw    []byte
}

// Engine is a fake automation endpoint that records every request and
// answers with a fixed status and body.
type Engine struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	response string
	requests []CapturedRequest
}

func NewEngine(t *testing.T, status int, response string) *Engine {
	t.Helper()

	e := &Engine{status: status, response: response}
	e.Server = httptest.NewServer(http.HandlerFunc(e.handle))
	t.Cleanup(e.Server.Close)

	return e
}

func (e *Engine) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)

	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	e.mu.Lock()
	e.requests = append(e.requests, CapturedRequest{Header: r.Header.Clone(), Body: body, Raw: raw})
	status, response := e.status, e.response
	e.mu.Unlock()

	w.WriteHeader(status)
	io.WriteString(w, response)
}

// Respond changes the status and body of subsequent responses.
func (e *Engine) Respond(status int, response string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status, e.response = status, response
}

func (e *Engine) Requests() []CapturedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]CapturedRequest(nil), e.requests...)
}

// Actions lists the action field of every captured request in order.
func (e *Engine) Actions() []string {
	var actions []string
	for _, req := range e.Requests() {
		action, _ := req.Body["action"].(string)
		actions = append(actions, action)
	}
	return actions
}

// SkipIfShort skips the test if running in short mode
func SkipIfShort(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timeout waiting for condition: %s", message)
}

// RandomString generates a random string for testing
func RandomString(length int) string {
	return uuid.New().String()[:length]
}

// RandomUserID generates a random user id for testing
func RandomUserID() string {
	return fmt.Sprintf("user_%s", uuid.New().String()[:8])
}
