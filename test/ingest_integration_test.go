//go:build integration

// Package test contains integration tests that exercise the full ingest
// stack end to end: a real HTTP server wired to the real formatting and
// delivery pipeline, posting cards to a TLS test server standing in for the
// Teams incoming webhook. These tests are skipped by default during
// `go test ./...` and must be run explicitly with the integration build tag:
//
//	go test -v -tags integration ./test/
//
// No external services are required; the webhook endpoint is an in-process
// httptest server.
package test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cardcast/internal/card"
	"cardcast/internal/config"
	"cardcast/internal/delivery"
	"cardcast/internal/httpapi"
	"cardcast/internal/metrics"
	"cardcast/internal/notify"
	"cardcast/internal/types"
)

const alarmMessage = `{
	"AlarmName": "cpu-high",
	"OldStateValue": "OK",
	"NewStateValue": "ALARM",
	"NewStateReason": "Threshold crossed: 3 datapoints were greater than the threshold."
}`

const auditMessage = `{
	"detail-type": "AWS Service Event via CloudTrail",
	"detail": {
		"eventName": "UpdateTrail",
		"eventType": "AwsServiceEvent",
		"errorMessage": "User: arn:aws:sts::123456789012:assumed-role/ci-deploy/session is not authorized to perform: cloudtrail:UpdateTrail"
	}
}`

// webhookCapture is a TLS test server standing in for the Teams incoming
// webhook. It records every POST body and answers with a configurable status.
type webhookCapture struct {
	server *httptest.Server

	mu     sync.Mutex
	bodies [][]byte
	status int
}

func newWebhookCapture(t *testing.T) *webhookCapture {
	t.Helper()
	c := &webhookCapture{status: http.StatusOK}
	c.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		status := c.status
		c.mu.Unlock()
		if status >= 400 {
			w.WriteHeader(status)
			w.Write([]byte("Summary or Text is required."))
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(c.server.Close)
	return c
}

func (c *webhookCapture) setStatus(status int) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

func (c *webhookCapture) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.bodies))
	copy(out, c.bodies)
	return out
}

// nopLogger satisfies types.Logger for pipeline components.
type nopLogger struct{}

func (nopLogger) Info(_ string, _ ...any)    {}
func (nopLogger) Error(_ string, _ ...any)   {}
func (nopLogger) Warn(_ string, _ ...any)    {}
func (nopLogger) With(_ ...any) types.Logger { return nopLogger{} }

// newIngestStack wires the full pipeline against the capture server and
// returns an httptest server hosting the ingest API.
func newIngestStack(t *testing.T, webhook *webhookCapture) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Environment: "local",
		Service:     "cardcast-integration",
		LogLevel:    "error",
		Server: config.ServerConfig{
			Port:           "0",
			RequestTimeout: 10 * time.Second,
		},
		Webhook: config.WebhookConfig{
			URL:          types.SecretString(webhook.server.URL),
			UserAgent:    "CardCast-Integration/1.0",
			Timeout:      5 * time.Second,
			MaxRedirects: 3,
		},
		Build: config.BuildInfo{Version: "integration", Commit: "0000000"},
	}

	typedLogger := nopLogger{}
	formatter := card.NewFormatter(nil, typedLogger)

	// The capture server uses a self-signed certificate, so the delivery
	// client must use the server's pre-trusted HTTP client.
	client := delivery.NewClientWithHTTPClient(&cfg.Webhook, webhook.server.Client(), typedLogger)

	notifier, err := notify.NewNotifier(formatter, client, metrics.NoopMetrics{}, typedLogger)
	if err != nil {
		t.Fatalf("NewNotifier: %v", err)
	}

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := httpapi.NewServer(cfg, notifier, slogger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.MountRoutes()

	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)
	return api
}

// postNotification delivers an SNS Notification envelope to the ingest API
// the way SNS does: JSON body, text/plain content type, message type header.
func postNotification(t *testing.T, api *httptest.Server, message, subject string) *http.Response {
	t.Helper()

	envelope := map[string]any{
		"Type":      "Notification",
		"MessageId": "22b80b92-fdea-4c2c-8f9d-bdfb0c7bf324",
		"TopicArn":  "arn:aws:sns:us-east-1:123456789012:cardcast-alerts",
		"Subject":   subject,
		"Message":   message,
		"Timestamp": "2026-01-15T09:30:00.000Z",
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, api.URL+"/v1/events", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	req.Header.Set("x-amz-sns-message-type", "Notification")

	resp, err := api.Client().Do(req)
	if err != nil {
		t.Fatalf("post notification: %v", err)
	}
	return resp
}

type ingestResponse struct {
	Status    string                `json:"status"`
	Branch    string                `json:"branch"`
	Delivery  *types.DeliveryReport `json:"delivery"`
	RequestID string                `json:"request_id"`
}

func decodeIngest(t *testing.T, resp *http.Response) ingestResponse {
	t.Helper()
	defer resp.Body.Close()
	var out ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestIngest_AlarmEndToEnd(t *testing.T) {
	webhook := newWebhookCapture(t)
	api := newIngestStack(t, webhook)

	resp := postNotification(t, api, alarmMessage, "ALARM: cpu-high")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decodeIngest(t, resp)
	if out.Status != "processed" {
		t.Errorf("expected status processed, got %q", out.Status)
	}
	if out.Branch != "alarm" {
		t.Errorf("expected alarm branch, got %q", out.Branch)
	}
	if out.Delivery == nil || !out.Delivery.Sent() {
		t.Fatalf("expected sent delivery, got %+v", out.Delivery)
	}
	if out.RequestID == "" {
		t.Error("expected a request ID")
	}

	bodies := webhook.received()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 webhook POST, got %d", len(bodies))
	}

	// The webhook body must be a card document carrying the alarm card.
	var doc struct {
		Type        string `json:"type"`
		Attachments []struct {
			ContentType string          `json:"contentType"`
			Content     json.RawMessage `json:"content"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal(bodies[0], &doc); err != nil {
		t.Fatalf("webhook body is not JSON: %v", err)
	}
	if doc.Type != "message" {
		t.Errorf("expected document type message, got %q", doc.Type)
	}
	if len(doc.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(doc.Attachments))
	}
	content := string(doc.Attachments[0].Content)
	if !strings.Contains(content, "Red Alert - cpu-high") {
		t.Errorf("card content missing alarm title: %s", content)
	}
	if !strings.Contains(content, "Attention") {
		t.Errorf("card content missing attention colour: %s", content)
	}
}

func TestIngest_AuditEndToEnd(t *testing.T) {
	webhook := newWebhookCapture(t)
	api := newIngestStack(t, webhook)

	resp := postNotification(t, api, auditMessage, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decodeIngest(t, resp)
	if out.Branch != "audit" {
		t.Errorf("expected audit branch, got %q", out.Branch)
	}
	if out.Delivery == nil || !out.Delivery.Sent() {
		t.Fatalf("expected sent delivery, got %+v", out.Delivery)
	}

	bodies := webhook.received()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 webhook POST, got %d", len(bodies))
	}
	body := string(bodies[0])
	if !strings.Contains(body, "Issue: UpdateTrail") {
		t.Errorf("card content missing audit title: %s", body)
	}
	if !strings.Contains(body, "assumed-role/ci-deploy/session - Issue: UpdateTrail") {
		t.Errorf("card title missing the extracted fault code: %s", body)
	}
}

func TestIngest_GenericEndToEnd(t *testing.T) {
	webhook := newWebhookCapture(t)
	api := newIngestStack(t, webhook)

	resp := postNotification(t, api, "deploy finished without incident", "deploy finished")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	out := decodeIngest(t, resp)
	if out.Branch != "generic" {
		t.Errorf("expected generic branch, got %q", out.Branch)
	}

	bodies := webhook.received()
	if len(bodies) != 1 {
		t.Fatalf("expected 1 webhook POST, got %d", len(bodies))
	}
	body := string(bodies[0])
	if !strings.Contains(body, "Alert - deploy finished") {
		t.Errorf("card content missing generic title: %s", body)
	}
	if !strings.Contains(body, "cardcast-alerts") {
		t.Errorf("card content missing topic ARN fact: %s", body)
	}
}

func TestIngest_WebhookRejectionReportedInResponse(t *testing.T) {
	webhook := newWebhookCapture(t)
	webhook.setStatus(http.StatusBadRequest)
	api := newIngestStack(t, webhook)

	resp := postNotification(t, api, alarmMessage, "ALARM: cpu-high")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest must answer 200 even when the webhook rejects, got %d", resp.StatusCode)
	}

	out := decodeIngest(t, resp)
	if out.Delivery == nil || out.Delivery.Status != types.DeliveryStatusFailed {
		t.Fatalf("expected failed delivery, got %+v", out.Delivery)
	}
	if !strings.Contains(out.Delivery.FailureReason, "400") {
		t.Errorf("failure reason should carry the status code, got %q", out.Delivery.FailureReason)
	}
}

func TestIngest_HealthEndpoint(t *testing.T) {
	webhook := newWebhookCapture(t)
	api := newIngestStack(t, webhook)

	resp, err := api.Client().Get(api.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"healthy"`) {
		t.Errorf("expected healthy status, got %s", body)
	}
}
