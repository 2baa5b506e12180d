// Package delivery posts card documents to the configured Teams webhook.
//
// Delivery is best-effort and fire-and-forget: every attempt produces a
// DeliveryReport, never an error. A failed POST is logged and acknowledged,
// so the event source never redelivers on webhook trouble. The HTTP client
// is SSRF-safe and a circuit breaker stops hammering an endpoint that keeps
// failing at the connection level.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"cardcast/internal/config"
	"cardcast/internal/security"
	"cardcast/internal/types"
)

// maxResponseBodyRead limits how much of a response body is read for
// failure reasons.
const maxResponseBodyRead = 4096

// breakerName identifies the webhook circuit breaker in state-change logs.
const breakerName = "teams-webhook"

// Client delivers card payloads to a single webhook endpoint.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	webhookURL string
	userAgent  string
	logger     types.Logger
	clock      types.Clock
}

// NewClient creates a Client with an SSRF-safe HTTP client. The webhook URL
// is validated up front, both structurally and against the SSRF blocklist,
// so a misconfigured endpoint fails at startup, not on the first event.
func NewClient(cfg *config.WebhookConfig, logger types.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("delivery client: config is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("delivery client: logger is nil")
	}

	url := cfg.URL.Unmask()
	if err := types.ValidateWebhookURL(url); err != nil {
		return nil, fmt.Errorf("delivery client: %w", err)
	}
	if err := security.CheckURL(url); err != nil {
		return nil, fmt.Errorf("delivery client: %w", err)
	}

	httpClient, err := security.NewSafeHTTPClient(cfg.Timeout, cfg.MaxRedirects)
	if err != nil {
		return nil, fmt.Errorf("delivery client: failed to create safe HTTP client: %w", err)
	}

	c := NewClientWithHTTPClient(cfg, httpClient, logger)
	return c, nil
}

// NewClientWithHTTPClient creates a Client with a caller-supplied HTTP
// client and no URL validation. This constructor exists for testing against
// local HTTP servers.
func NewClientWithHTTPClient(cfg *config.WebhookConfig, httpClient *http.Client, logger types.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		breaker:    newBreaker(),
		webhookURL: cfg.URL.Unmask(),
		userAgent:  cfg.UserAgent,
		logger:     logger,
		clock:      types.RealClock{},
	}
}

// SetClock overrides the clock for testing.
func (c *Client) SetClock(clock types.Clock) {
	c.clock = clock
}

// newBreaker builds the webhook circuit breaker: it opens after more than
// five consecutive connection-level failures and probes again after 30s.
// HTTP error statuses do not trip it; the webhook answering at all means
// the endpoint is alive.
func newBreaker() *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
}

// Deliver POSTs the payload to the webhook and reports the outcome. It
// never returns an error: connection failures, breaker rejections, and
// non-2xx statuses all come back as a failed report with the reason
// attached, already logged.
func (c *Client) Deliver(ctx context.Context, payload []byte) types.DeliveryReport {
	report := types.DeliveryReport{
		ID: uuid.New().String(),
	}
	start := c.clock.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		report.Status = types.DeliveryStatusFailed
		report.FailureReason = fmt.Sprintf("request build failed: %v", err)
		report.Elapsed = c.clock.Now().Sub(start)
		c.logger.Error("Request build failed",
			"delivery_id", report.ID,
			"error", err.Error(),
		)
		return report
	}

	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		report.Status = types.DeliveryStatusFailed
		report.FailureReason = connectionFailureReason(err)
		report.Elapsed = c.clock.Now().Sub(start)
		c.logger.Error("Server connection failed",
			"delivery_id", report.ID,
			"error", err.Error(),
			"elapsed_ms", report.Elapsed.Milliseconds(),
		)
		return report
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))
	report.HTTPStatus = resp.StatusCode
	report.Elapsed = c.clock.Now().Sub(start)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		report.Status = types.DeliveryStatusSent
		c.logger.Info("Message posted successfully.",
			"delivery_id", report.ID,
			"status", resp.StatusCode,
			"elapsed_ms", report.Elapsed.Milliseconds(),
		)
		return report
	}

	report.Status = types.DeliveryStatusFailed
	report.FailureReason = fmt.Sprintf("%s: %s", resp.Status, truncateBody(body))
	c.logger.Error("Request failed",
		"delivery_id", report.ID,
		"status", resp.StatusCode,
		"reason", truncateBody(body),
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
	return report
}

// connectionFailureReason renders a transport-level failure, marking breaker
// rejections distinctly since no request went out at all.
func connectionFailureReason(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Sprintf("circuit breaker rejected request: %v", err)
	}
	return fmt.Sprintf("connection failed: %v", err)
}

// truncateBody returns a truncated version of the response body for failure
// reasons.
func truncateBody(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
