// Package notify orchestrates the notification pipeline: unwrap the inbound
// envelope, classify the nested message, format a card, and post it to the
// configured Teams webhook. The pipeline is best-effort end to end. Once a
// record has been extracted, every downstream failure is absorbed into the
// outcome (a degraded formatting branch or a failed DeliveryReport) rather
// than raised, so the event source is never asked to redeliver.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"cardcast/internal/card"
	"cardcast/internal/event"
	"cardcast/internal/types"
)

// Deliverer posts an encoded card document to the webhook endpoint. The
// returned report carries the attempt outcome; it is never an error.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte) types.DeliveryReport
}

// DeliveryMetrics records telemetry about delivery outcomes. Implementations
// must be fire-and-forget: recording failures are logged internally, never
// returned.
type DeliveryMetrics interface {
	RecordDelivery(ctx context.Context, branch types.MessageKind, status types.DeliveryStatus)
	RecordLatency(ctx context.Context, branch types.MessageKind, elapsed time.Duration)
}

// Outcome is the result of one pipeline pass: which formatting branch was
// taken, the card it produced, and the delivery attempt's report.
type Outcome struct {
	Branch types.MessageKind
	Card   types.CardData
	Report types.DeliveryReport
}

// Notifier wires the pipeline stages together. It is safe for concurrent use:
// all fields are read-only after construction and each Process call works on
// its own data.
type Notifier struct {
	formatter *card.Formatter
	deliverer Deliverer
	metrics   DeliveryMetrics
	logger    types.Logger
}

// NewNotifier creates a Notifier. All dependencies are required; pass a noop
// metrics implementation when telemetry is disabled.
func NewNotifier(formatter *card.Formatter, deliverer Deliverer, metrics DeliveryMetrics, logger types.Logger) (*Notifier, error) {
	if formatter == nil {
		return nil, fmt.Errorf("notifier: formatter is nil")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("notifier: deliverer is nil")
	}
	if metrics == nil {
		return nil, fmt.Errorf("notifier: metrics is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("notifier: logger is nil")
	}
	return &Notifier{
		formatter: formatter,
		deliverer: deliverer,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Process runs the pipeline for a whole SNS envelope. Only the first record
// is processed; additional records are logged and skipped. An error is
// returned only when the envelope carries no record at all, in which case
// nothing was delivered.
func (n *Notifier) Process(ctx context.Context, evt events.SNSEvent) (Outcome, error) {
	logger := n.contextLogger(ctx)

	if len(evt.Records) > 1 {
		logger.Warn("envelope carries multiple records, processing only the first",
			"record_count", len(evt.Records),
		)
	}

	record, err := event.FirstRecord(evt)
	if err != nil {
		logger.Error("no deliverable record in envelope", "error", err.Error())
		return Outcome{}, err
	}

	return n.ProcessRecord(ctx, record), nil
}

// ProcessRecord runs classification, formatting, and delivery for a single
// record. It never fails: classification problems degrade to the generic
// branch and delivery problems are carried in the report.
func (n *Notifier) ProcessRecord(ctx context.Context, record types.Record) Outcome {
	logger := n.contextLogger(ctx)
	if record.MessageID != "" {
		logger = logger.With("message_id", record.MessageID)
	}

	cls, err := event.Classify(record)
	if err != nil {
		// The message looked like an alarm but lacked required state fields.
		// Render it generically instead of dropping it.
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			logger.Warn("alarm message missing required state fields, formatting as generic notification",
				"error_code", string(appErr.Code),
				"details", appErr.Details,
			)
		} else {
			logger.Warn("alarm message missing required state fields, formatting as generic notification",
				"error", err.Error(),
			)
		}
		cls = event.Classification{Kind: types.KindGeneric}
	}

	var data types.CardData
	switch cls.Kind {
	case types.KindAlarm:
		data = n.formatter.FormatAlarm(*cls.Alarm)
	case types.KindAudit:
		data = n.formatter.FormatAudit(*cls.Audit)
	default:
		data = n.formatter.FormatGeneric(record)
	}

	payload, err := card.BuildDocument(data).Encode()
	if err != nil {
		logger.Error("card document encoding failed",
			"branch", string(cls.Kind),
			"error", err.Error(),
		)
		report := types.DeliveryReport{
			Status:        types.DeliveryStatusFailed,
			FailureReason: fmt.Sprintf("card encoding failed: %v", err),
		}
		n.metrics.RecordDelivery(ctx, cls.Kind, report.Status)
		return Outcome{Branch: cls.Kind, Card: data, Report: report}
	}

	report := n.deliverer.Deliver(ctx, payload)

	n.metrics.RecordDelivery(ctx, cls.Kind, report.Status)
	n.metrics.RecordLatency(ctx, cls.Kind, report.Elapsed)

	logger.Info("notification processed",
		"branch", string(cls.Kind),
		"delivery_id", report.ID,
		"delivery_status", string(report.Status),
		"http_status", report.HTTPStatus,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)

	return Outcome{Branch: cls.Kind, Card: data, Report: report}
}

// contextLogger enriches the base logger with the invocation's trace ID when
// one is present on the context.
func (n *Notifier) contextLogger(ctx context.Context) types.Logger {
	if id := types.GetRequestID(ctx); id != "" {
		return n.logger.With("trace_id", id)
	}
	return n.logger
}
