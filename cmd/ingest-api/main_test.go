package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"cardcast/internal/config"
	"cardcast/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Service:     "cardcast-test",
		LogLevel:    "info",
		Server: config.ServerConfig{
			Port:           "8080",
			RequestTimeout: 5 * time.Second,
		},
		Webhook: config.WebhookConfig{
			URL:          types.SecretString("https://example.webhook.office.com/webhookb2/test"),
			UserAgent:    "CardCast-Test/1.0",
			Timeout:      10 * time.Second,
			MaxRedirects: 3,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildNotifier(t *testing.T) {
	notifier, err := buildNotifier(testConfig(), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier == nil {
		t.Fatal("expected non-nil notifier")
	}
}

func TestBuildNotifier_BadOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Cards.Overrides = "{not json"

	_, err := buildNotifier(cfg, discardLogger())
	if err == nil {
		t.Fatal("expected error for malformed overrides")
	}
	if !strings.Contains(err.Error(), "card overrides") {
		t.Errorf("expected card overrides error, got: %v", err)
	}
}

func TestBuildNotifier_RejectsNonHTTPSWebhook(t *testing.T) {
	cfg := testConfig()
	cfg.Webhook.URL = types.SecretString("http://example.webhook.office.com/webhookb2/test")

	_, err := buildNotifier(cfg, discardLogger())
	if err == nil {
		t.Fatal("expected error for plain HTTP webhook URL")
	}
	if !strings.Contains(err.Error(), "delivery client") {
		t.Errorf("expected delivery client error, got: %v", err)
	}
}

func TestSlogAdapter_WithReturnsLogger(t *testing.T) {
	adapter := &slogAdapter{logger: discardLogger()}
	child := adapter.With("component", "test")
	if child == nil {
		t.Fatal("With should return a non-nil logger")
	}
	child.Info("wired")
}
