// Package main is the entrypoint for the notify worker Lambda function.
//
// The notify worker receives Amazon SNS events (CloudWatch alarm state
// changes, CloudTrail audit notifications, or plain text), formats each into
// a Microsoft Teams Adaptive Card, and posts the card to the configured
// incoming-webhook URL.
//
// Cold Start (main):
//  1. Initialize structured logger.
//  2. Load and validate configuration (env vars, .env file, SSM-backed secrets).
//  3. Parse the optional card override table.
//  4. Build the card formatter and the SSRF-safe webhook delivery client.
//  5. Build the CloudWatch metrics recorder (no-op unless METRICS_ENABLED).
//  6. Register the handler and call lambda.Start.
//
// Per invocation the handler extracts the first record of the envelope,
// classifies it (alarm, audit, generic), renders the card, and delivers it.
// Delivery failures do not fail the invocation: the outcome is logged and
// counted, and SNS must not redrive a POST the webhook already rejected.
// Only an envelope with no records errors the invocation.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"cardcast/internal/card"
	"cardcast/internal/config"
	"cardcast/internal/delivery"
	"cardcast/internal/metrics"
	"cardcast/internal/notify"
	"cardcast/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// The types.Logger interface requires Info, Error, Warn, and With methods.
// slog.Logger satisfies the first three but With returns *slog.Logger, not
// types.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Handler holds the dependencies for the notify worker Lambda handler.
type Handler struct {
	notifier *notify.Notifier
	logger   types.Logger
}

// Handle processes one SNS envelope through the notification pipeline.
// Formatting and delivery failures are absorbed into the outcome (logged
// and counted by the Notifier); the invocation errors only when the
// envelope itself carries no deliverable record.
func (h *Handler) Handle(ctx context.Context, snsEvent events.SNSEvent) error {
	_, err := h.notifier.Process(ctx, snsEvent)
	return err
}

func main() {
	// Initialize structured logger at startup (Cold Start).
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("CardCast notify worker initializing (cold start)")

	// Load configuration. The SSM provider initializes its client lazily and
	// the loader only resolves _SSM_PARAM bindings outside APP_ENV=local, so
	// local runs never touch AWS. The Lambda runtime always sets AWS_REGION.
	provider := config.NewSSMProvider(os.Getenv("AWS_REGION"))
	cfg, err := config.LoadConfig(provider)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Rebuild the logger at the configured level and wrap it to satisfy
	// the types.Logger interface.
	logger = newLogger(cfg.LogLevel)
	typedLogger := &slogAdapter{logger: logger}

	// Parse the optional pre-authored card override table.
	overrides, err := card.ParseOverrides(cfg.Cards.Overrides)
	if err != nil {
		logger.Error("Failed to parse card overrides", "error", err)
		os.Exit(1)
	}

	formatter := card.NewFormatter(overrides, typedLogger)

	// Initialize the webhook delivery client (SSRF-safe transport, circuit
	// breaker). Fails fast when the webhook URL is not a valid HTTPS URL.
	client, err := delivery.NewClient(&cfg.Webhook, typedLogger)
	if err != nil {
		logger.Error("Failed to create delivery client", "error", err)
		os.Exit(1)
	}

	// Initialize CloudWatch metrics when enabled; otherwise the pipeline's
	// only side effects are log lines and the webhook POST.
	var deliveryMetrics notify.DeliveryMetrics = metrics.NoopMetrics{}
	if cfg.Observability.EnableMetrics {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.AWS.Region),
		)
		if err != nil {
			logger.Error("Failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}
		deliveryMetrics = metrics.NewCloudWatchMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			typedLogger,
		)
	}

	notifier, err := notify.NewNotifier(formatter, client, deliveryMetrics, typedLogger)
	if err != nil {
		logger.Error("Failed to create notifier", "error", err)
		os.Exit(1)
	}

	handler := &Handler{
		notifier: notifier,
		logger:   typedLogger,
	}

	logger.Info("CardCast notify worker initialized",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"user_agent", cfg.Webhook.UserAgent,
		"timeout", cfg.Webhook.Timeout.String(),
		"max_redirects", cfg.Webhook.MaxRedirects,
		"overrides", overrides.Len(),
		"metrics_enabled", cfg.Observability.EnableMetrics,
	)

	lambda.Start(handler.Handle)
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}

// Compile-time assertion that slogAdapter implements types.Logger.
var _ types.Logger = (*slogAdapter)(nil)
