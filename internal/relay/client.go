package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/metrics"
)

// Client relays actions to the workflow-automation engine. It holds no
// mutable state after construction and is safe for concurrent use.
type Client struct {
	config       Config
	httpClient   *http.Client
	now          func() time.Time
	metricLabels map[string]struct{}
}

func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	metricLabels := map[string]struct{}{HealthAction: {}}
	for _, action := range config.MetricActions {
		metricLabels[action] = struct{}{}
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now:          time.Now,
		metricLabels: metricLabels,
	}
}

// Trigger delivers action+payload with a fresh timestamp and signature and
// normalizes the outcome. It never returns an error: every failure is
// reported through Result.
func (c *Client) Trigger(ctx context.Context, action string, payload map[string]any) Result {
	startTime := time.Now()

	result := c.trigger(ctx, action, payload)
	result.DurationMs = time.Since(startTime).Milliseconds()

	outcome := "success"
	if !result.Success {
		outcome = "failure"
		logrus.WithFields(logrus.Fields{
			"action":      action,
			"status_code": result.StatusCode,
			"duration_ms": result.DurationMs,
		}).Warnf("Relay call failed: %s", result.Error)
	} else {
		logrus.WithFields(logrus.Fields{
			"action":      action,
			"status_code": result.StatusCode,
			"duration_ms": result.DurationMs,
		}).Info("Relay call succeeded")
	}
	label := c.metricLabel(action)
	metrics.RelayRequests.WithLabelValues(label, outcome).Inc()
	metrics.RelayDuration.WithLabelValues(label).Observe(time.Since(startTime).Seconds())

	return result
}

// metricLabel keeps label cardinality bounded by the configured actions.
func (c *Client) metricLabel(action string) string {
	if _, ok := c.metricLabels[action]; ok {
		return action
	}
	return otherActionLabel
}

// Health triggers the engine's health action bounded by DefaultTimeout.
func (c *Client) Health(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	return c.Trigger(ctx, HealthAction, map[string]any{
		"timestamp": c.now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) trigger(ctx context.Context, action string, payload map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(fmt.Errorf("%s failed: %v", action, r))
		}
	}()

	if strings.TrimSpace(action) == "" {
		return failure(ErrEmptyAction)
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return failure(err)
	}

	body, err := EncodeBody(action, payload)
	if err != nil {
		return failure(fmt.Errorf("failed to serialize payload: %w", err))
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature := Sign(c.config.Secret, timestamp, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set(HeaderSecret, c.config.Secret)
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure(unwrapTransportError(err))
	}
	defer resp.Body.Close()

	// read as text first, error bodies are often not JSON
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{
			Success:    false,
			Error:      fmt.Sprintf("%s failed: reading response: %v", action, err),
			StatusCode: resp.StatusCode,
		}
	}
	rawText := string(bodyBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Success:    false,
			Error:      fmt.Sprintf("%s failed: %d %s", action, resp.StatusCode, rawText),
			StatusCode: resp.StatusCode,
		}
	}

	return Result{
		Success:    true,
		Data:       decodeResponse(bodyBytes),
		StatusCode: resp.StatusCode,
	}
}

// endpoint validates the configuration and joins base URL and path.
func (c *Client) endpoint() (string, error) {
	if c.config.BaseURL == "" {
		return "", errors.New("N8N_BASE_URL is not set")
	}
	if c.config.WebhookPath == "" {
		return "", errors.New("N8N_WEBHOOK_PATH is not set")
	}
	if c.config.Secret == "" {
		return "", errors.New("N8N_SHARED_SECRET is not set")
	}

	base, err := url.Parse(c.config.BaseURL)
	if err != nil || !base.IsAbs() || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return "", errors.New("N8N_BASE_URL must be an absolute http(s) URL")
	}

	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(c.config.WebhookPath, "/"), nil
}

// EncodeBody serializes {"action": action, ...payload}. The action argument
// wins over a payload key of the same name.
func EncodeBody(action string, payload map[string]any) ([]byte, error) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action

	return json.Marshal(body)
}

func decodeResponse(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return map[string]any{"raw": string(body)}
	}
	return data
}

// unwrapTransportError drops the "Post <url>:" prefix net/http adds so the
// endpoint does not leak into caller-facing messages.
func unwrapTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Errorf("request timed out: %w", urlErr.Err)
		}
		return urlErr.Err
	}
	return err
}
