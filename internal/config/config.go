// Package config defines the global configuration structure for the CardCast
// notifier. Configuration is loaded once at process initialization (Lambda
// cold start or server boot) and is immutable thereafter. It follows 12-Factor
// App principles by strictly separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format causes the process to exit
// immediately on startup (fail fast). No event is read before the
// configuration is known good.
package config

import (
	"time"

	"cardcast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values such as the webhook URL.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the CardCast notifier.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"cardcast-notifier"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server        ServerConfig
	AWS           AWSConfig
	Webhook       WebhookConfig
	Cards         CardConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings. Only the ingest-api entrypoint
// reads these; the Lambda worker ignores them.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
}

// AWSConfig holds regional configuration for the SSM and CloudWatch clients.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// WebhookConfig holds settings for outbound card delivery.
//
// URL is the only required external configuration of the whole service: the
// Teams incoming-webhook endpoint. Its path segment is a capability token, so
// the value is held as a SecretString and may be supplied indirectly via
// TEAMS_WEBHOOK_URL_SSM_PARAM in non-local environments.
type WebhookConfig struct {
	URL          SecretString  `envconfig:"TEAMS_WEBHOOK_URL" validate:"required,url"`
	UserAgent    string        `envconfig:"WEBHOOK_USER_AGENT" default:"CardCast-Notifier/1.0"`
	Timeout      time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	MaxRedirects int           `envconfig:"WEBHOOK_MAX_REDIRECTS" default:"3"`
}

// CardConfig holds card formatting configuration.
//
// Overrides is an optional JSON array of pre-authored cards keyed by alarm
// state and name, replacing the computed alarm card wholesale on an exact
// match. Example:
//
//	[{"state":"ALARM","alarm":"my-alarm-name","colour":"Attention",
//	  "title":"Red Alert - A bad thing happened.","text":"..."}]
type CardConfig struct {
	Overrides string `envconfig:"CARD_OVERRIDES" validate:"omitempty,json"`
}

// ObservabilityConfig holds telemetry settings. Metrics are opt-in: by
// default the notifier's only side effects are log lines and the webhook POST.
type ObservabilityConfig struct {
	EnableMetrics   bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRICS_NAMESPACE" default:"CardCast/Delivery"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
