// internal/relay/types.go
package relay

import (
	"context"
	"errors"
	"time"
)

// Outbound headers understood by the workflow engine
const (
	HeaderSecret    = "X-N8N-Secret"
	HeaderTimestamp = "X-N8N-Timestamp"
	HeaderSignature = "X-N8N-Signature"
)

const (
	DefaultTimeout = 5 * time.Second
	HealthAction   = "system.health"
	UserAgent      = "AgencyService-Relay/1.0"

	// UnavailableMessage is all a public caller learns about a relay failure.
	UnavailableMessage = "automation temporarily unavailable"

	// otherActionLabel groups actions outside Config.MetricActions in metrics.
	otherActionLabel = "other"
)

var (
	ErrEmptyAction        = errors.New("action is required")
	ErrMissingSignature   = errors.New("missing signature headers")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrTimestampExpired   = errors.New("timestamp outside tolerance")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
)

// Config is the read-only relay configuration. It is validated at call time
// so a partially configured process still starts.
type Config struct {
	BaseURL     string
	WebhookPath string
	Secret      string
	Timeout     time.Duration

	// MetricActions get their own metric label. Anything else, such as
	// free-form /trigger actions, is counted as "other".
	MetricActions []string
}

// Result is the outcome of a relay call. Success=false always carries Error.
type Result struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// TriggerRequest is the inbound body of POST /trigger. Everything except
// action is forwarded as payload.
type TriggerRequest struct {
	Action  string
	Payload map[string]any
}

// TriggerResponse mirrors the dashboard contract ({ok, result|error}).
type TriggerResponse struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Relayer is the narrow view of Client that other packages depend on.
type Relayer interface {
	Trigger(ctx context.Context, action string, payload map[string]any) Result
}

// Engine adds the health probe used by the status handlers.
type Engine interface {
	Relayer
	Health(ctx context.Context) Result
}
