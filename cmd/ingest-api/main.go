// Package main is the entry point for the CardCast ingest API server.
//
// The ingest API is the long-running alternative to the notify worker
// Lambda. It terminates an SNS HTTPS subscription directly: raw SNS POST
// deliveries arrive on /v1/events, subscription confirmations are handled
// in place, and each notification runs through the same format-and-deliver
// pipeline the Lambda uses.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"golang.org/x/sync/errgroup"

	"cardcast/internal/card"
	"cardcast/internal/config"
	"cardcast/internal/delivery"
	"cardcast/internal/httpapi"
	"cardcast/internal/metrics"
	"cardcast/internal/notify"
	"cardcast/internal/types"
)

// shutdownGrace bounds how long in-flight requests may drain on shutdown.
const shutdownGrace = 10 * time.Second

// slogAdapter wraps *slog.Logger to implement the types.Logger interface
// consumed by the formatting and delivery packages.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// Load configuration. Inside AWS the *_SSM_PARAM indirection resolves
	// through Parameter Store; self-hosted deployments have no AWS_REGION and
	// resolve the referenced names from the environment instead. The loader
	// skips resolution entirely under APP_ENV=local.
	var secrets config.SecretProvider
	if region := os.Getenv("AWS_REGION"); region != "" {
		secrets = config.NewSSMProvider(region)
	} else {
		secrets = config.NewEnvVarProvider()
	}
	cfg, err := config.LoadConfig(secrets)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Initialize structured logger.
	logger := newLogger(cfg.LogLevel)
	logger.Info("CardCast ingest API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	// Wire the notification pipeline shared with the notify worker Lambda.
	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}

	// Build the server and mount the middleware chain, ingest route, and
	// health endpoint.
	srv, err := httpapi.NewServer(cfg, notifier, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// buildNotifier constructs the card formatter, webhook delivery client,
// metrics recorder, and the Notifier that orchestrates them.
func buildNotifier(cfg *config.Config, logger *slog.Logger) (*notify.Notifier, error) {
	typedLogger := &slogAdapter{logger: logger}

	overrides, err := card.ParseOverrides(cfg.Cards.Overrides)
	if err != nil {
		return nil, fmt.Errorf("parsing card overrides: %w", err)
	}

	formatter := card.NewFormatter(overrides, typedLogger)

	client, err := delivery.NewClient(&cfg.Webhook, typedLogger)
	if err != nil {
		return nil, fmt.Errorf("creating delivery client: %w", err)
	}

	// CloudWatch metrics are opt-in; the default pipeline's only side
	// effects are log lines and the webhook POST.
	var deliveryMetrics notify.DeliveryMetrics = metrics.NoopMetrics{}
	if cfg.Observability.EnableMetrics {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.AWS.Region),
		)
		if err != nil {
			return nil, fmt.Errorf("loading AWS SDK config: %w", err)
		}
		deliveryMetrics = metrics.NewCloudWatchMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			typedLogger,
		)
	}

	notifier, err := notify.NewNotifier(formatter, client, deliveryMetrics, typedLogger)
	if err != nil {
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	return notifier, nil
}

// runHTTPServer starts the HTTP listener and blocks until a shutdown signal
// arrives or the listener fails. In-flight requests drain for up to
// shutdownGrace before the process exits.
func runHTTPServer(srv *httpapi.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// gctx ends on SIGINT/SIGTERM or when the listener goroutine fails.
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped cleanly")
	return nil
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
