package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"cardcast/internal/card"
	"cardcast/internal/delivery"
	"cardcast/internal/metrics"
	"cardcast/internal/types"
)

// Compile-time assertions that the production implementations satisfy the
// pipeline's consumer interfaces.
var (
	_ Deliverer       = (*delivery.Client)(nil)
	_ DeliveryMetrics = (*metrics.CloudWatchMetrics)(nil)
	_ DeliveryMetrics = metrics.NoopMetrics{}
)

// mockDeliverer records delivered payloads and returns a configurable report.
type mockDeliverer struct {
	payloads [][]byte
	report   types.DeliveryReport
}

func (m *mockDeliverer) Deliver(_ context.Context, payload []byte) types.DeliveryReport {
	m.payloads = append(m.payloads, payload)
	return m.report
}

// mockMetrics records telemetry calls for verification.
type mockMetrics struct {
	deliveryBranches []types.MessageKind
	deliveryStatuses []types.DeliveryStatus
	latencyBranches  []types.MessageKind
	latencies        []time.Duration
}

func (m *mockMetrics) RecordDelivery(_ context.Context, branch types.MessageKind, status types.DeliveryStatus) {
	m.deliveryBranches = append(m.deliveryBranches, branch)
	m.deliveryStatuses = append(m.deliveryStatuses, status)
}

func (m *mockMetrics) RecordLatency(_ context.Context, branch types.MessageKind, elapsed time.Duration) {
	m.latencyBranches = append(m.latencyBranches, branch)
	m.latencies = append(m.latencies, elapsed)
}

// mockLogger records log messages and With arguments.
type mockLogger struct {
	infos    []string
	warns    []string
	errs     []string
	withArgs []any
}

func (l *mockLogger) Info(msg string, args ...any)  { l.infos = append(l.infos, msg) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.warns = append(l.warns, msg) }
func (l *mockLogger) Error(msg string, args ...any) { l.errs = append(l.errs, msg) }
func (l *mockLogger) With(args ...any) types.Logger {
	l.withArgs = append(l.withArgs, args...)
	return l
}

func (l *mockLogger) hasWarn(substr string) bool {
	for _, m := range l.warns {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

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
		"eventType": "AwsServiceEvent"
	}
}`

func sentReport() types.DeliveryReport {
	return types.DeliveryReport{
		ID:         "11111111-2222-3333-4444-555555555555",
		Status:     types.DeliveryStatusSent,
		HTTPStatus: 200,
		Elapsed:    42 * time.Millisecond,
	}
}

func newTestNotifier(t *testing.T, deliverer Deliverer, m DeliveryMetrics, logger types.Logger) *Notifier {
	t.Helper()
	n, err := NewNotifier(card.NewFormatter(nil, logger), deliverer, m, logger)
	if err != nil {
		t.Fatalf("NewNotifier: %v", err)
	}
	return n
}

func snsEvent(messages ...string) events.SNSEvent {
	evt := events.SNSEvent{}
	for _, msg := range messages {
		evt.Records = append(evt.Records, events.SNSEventRecord{
			SNS: events.SNSEntity{
				Message:   msg,
				Subject:   "test-subject",
				Type:      "Notification",
				MessageID: "msg-001",
				TopicArn:  "arn:aws:sns:us-east-1:123456789012:ops-alerts",
			},
		})
	}
	return evt
}

// --- Constructor Tests ---

func TestNewNotifier_NilDependencies(t *testing.T) {
	logger := &mockLogger{}
	formatter := card.NewFormatter(nil, logger)
	deliverer := &mockDeliverer{}
	m := &mockMetrics{}

	cases := []struct {
		name    string
		err     string
		attempt func() (*Notifier, error)
	}{
		{"formatter", "formatter is nil", func() (*Notifier, error) {
			return NewNotifier(nil, deliverer, m, logger)
		}},
		{"deliverer", "deliverer is nil", func() (*Notifier, error) {
			return NewNotifier(formatter, nil, m, logger)
		}},
		{"metrics", "metrics is nil", func() (*Notifier, error) {
			return NewNotifier(formatter, deliverer, nil, logger)
		}},
		{"logger", "logger is nil", func() (*Notifier, error) {
			return NewNotifier(formatter, deliverer, m, nil)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.attempt()
			if err == nil {
				t.Fatalf("expected error for nil %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.err) {
				t.Errorf("error = %v, want mention of %q", err, tc.err)
			}
		})
	}
}

// --- Envelope Tests ---

func TestProcess_AlarmEnvelope(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	m := &mockMetrics{}
	notifier := newTestNotifier(t, deliverer, m, &mockLogger{})

	outcome, err := notifier.Process(context.Background(), snsEvent(alarmMessage))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if outcome.Branch != types.KindAlarm {
		t.Errorf("Branch = %q, want alarm", outcome.Branch)
	}
	if !outcome.Report.Sent() {
		t.Errorf("Report.Status = %q, want sent", outcome.Report.Status)
	}
	if outcome.Card.Colour != types.ColourAttention {
		t.Errorf("Card.Colour = %q, want Attention for a firing alarm", outcome.Card.Colour)
	}

	if len(deliverer.payloads) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliverer.payloads))
	}
	payload := string(deliverer.payloads[0])
	if !strings.Contains(payload, "Red Alert - cpu-high") {
		t.Errorf("payload missing alarm title: %s", payload)
	}

	if len(m.deliveryBranches) != 1 || m.deliveryBranches[0] != types.KindAlarm {
		t.Errorf("delivery metric branches = %v, want [alarm]", m.deliveryBranches)
	}
	if len(m.deliveryStatuses) != 1 || m.deliveryStatuses[0] != types.DeliveryStatusSent {
		t.Errorf("delivery metric statuses = %v, want [sent]", m.deliveryStatuses)
	}
	if len(m.latencies) != 1 || m.latencies[0] != 42*time.Millisecond {
		t.Errorf("latency metrics = %v, want the report's elapsed time", m.latencies)
	}
}

func TestProcess_EmptyEnvelope(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	m := &mockMetrics{}
	notifier := newTestNotifier(t, deliverer, m, &mockLogger{})

	_, err := notifier.Process(context.Background(), events.SNSEvent{})
	if err == nil {
		t.Fatal("expected error for empty envelope")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeMalformedEnvelope {
		t.Errorf("error = %v, want AppError with code %s", err, types.ErrCodeMalformedEnvelope)
	}

	if len(deliverer.payloads) != 0 {
		t.Errorf("expected no delivery for empty envelope, got %d", len(deliverer.payloads))
	}
	if len(m.deliveryBranches) != 0 {
		t.Errorf("expected no metrics for empty envelope, got %v", m.deliveryBranches)
	}
}

func TestProcess_MultiRecordTakesFirst(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	logger := &mockLogger{}
	notifier := newTestNotifier(t, deliverer, &mockMetrics{}, logger)

	outcome, err := notifier.Process(context.Background(), snsEvent(alarmMessage, `plain second record`))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if outcome.Branch != types.KindAlarm {
		t.Errorf("Branch = %q, want alarm from the first record", outcome.Branch)
	}
	if len(deliverer.payloads) != 1 {
		t.Errorf("expected exactly 1 delivery, got %d", len(deliverer.payloads))
	}
	if !logger.hasWarn("multiple records") {
		t.Errorf("expected a multi-record warning, got warns %v", logger.warns)
	}
}

// --- Record Tests ---

func TestProcessRecord_AuditBranch(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	notifier := newTestNotifier(t, deliverer, &mockMetrics{}, &mockLogger{})

	outcome := notifier.ProcessRecord(context.Background(), types.Record{Message: auditMessage})

	if outcome.Branch != types.KindAudit {
		t.Errorf("Branch = %q, want audit", outcome.Branch)
	}
	if outcome.Card.Colour != types.ColourAttention {
		t.Errorf("Card.Colour = %q, want Attention", outcome.Card.Colour)
	}
	if !strings.Contains(string(deliverer.payloads[0]), "Alert - Issue: UpdateTrail") {
		t.Errorf("payload missing audit title: %s", deliverer.payloads[0])
	}
}

func TestProcessRecord_GenericBranch(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	notifier := newTestNotifier(t, deliverer, &mockMetrics{}, &mockLogger{})

	record := types.Record{
		Message: "deployment finished without errors",
		Subject: "deploy finished",
	}
	outcome := notifier.ProcessRecord(context.Background(), record)

	if outcome.Branch != types.KindGeneric {
		t.Errorf("Branch = %q, want generic", outcome.Branch)
	}
	if outcome.Card.Colour != types.ColourWarning {
		t.Errorf("Card.Colour = %q, want Warning", outcome.Card.Colour)
	}
	if outcome.Card.Title != "Alert - deploy finished" {
		t.Errorf("Card.Title = %q", outcome.Card.Title)
	}
}

func TestProcessRecord_MalformedAlarmDegradesToGeneric(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	m := &mockMetrics{}
	logger := &mockLogger{}
	notifier := newTestNotifier(t, deliverer, m, logger)

	record := types.Record{Message: `{"AlarmName": "cpu-high", "NewStateValue": "ALARM"}`}
	outcome := notifier.ProcessRecord(context.Background(), record)

	if outcome.Branch != types.KindGeneric {
		t.Errorf("Branch = %q, want generic after degradation", outcome.Branch)
	}
	if len(deliverer.payloads) != 1 {
		t.Fatalf("degraded record must still be delivered, got %d deliveries", len(deliverer.payloads))
	}
	if !logger.hasWarn("missing required state fields") {
		t.Errorf("expected degradation warning, got warns %v", logger.warns)
	}
	if len(m.deliveryBranches) != 1 || m.deliveryBranches[0] != types.KindGeneric {
		t.Errorf("metric branch = %v, want [generic]", m.deliveryBranches)
	}
}

func TestProcessRecord_DeliveryFailureCarriedInOutcome(t *testing.T) {
	deliverer := &mockDeliverer{report: types.DeliveryReport{
		ID:            "99999999-8888-7777-6666-555555555555",
		Status:        types.DeliveryStatusFailed,
		HTTPStatus:    502,
		FailureReason: "502 Bad Gateway: upstream unavailable",
		Elapsed:       10 * time.Millisecond,
	}}
	m := &mockMetrics{}
	notifier := newTestNotifier(t, deliverer, m, &mockLogger{})

	outcome := notifier.ProcessRecord(context.Background(), types.Record{Message: alarmMessage})

	if outcome.Report.Sent() {
		t.Error("Report should carry the failure")
	}
	if outcome.Report.HTTPStatus != 502 {
		t.Errorf("HTTPStatus = %d, want 502", outcome.Report.HTTPStatus)
	}
	if len(m.deliveryStatuses) != 1 || m.deliveryStatuses[0] != types.DeliveryStatusFailed {
		t.Errorf("metric statuses = %v, want [failed]", m.deliveryStatuses)
	}
}

func TestProcessRecord_PayloadIsCardDocument(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	notifier := newTestNotifier(t, deliverer, &mockMetrics{}, &mockLogger{})

	notifier.ProcessRecord(context.Background(), types.Record{Message: alarmMessage})

	var doc map[string]any
	if err := json.Unmarshal(deliverer.payloads[0], &doc); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if doc["type"] != "message" {
		t.Errorf("payload type = %v, want message", doc["type"])
	}
	attachments, ok := doc["attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("payload attachments = %v, want exactly one", doc["attachments"])
	}
}

func TestProcessRecord_TraceIDEnrichesLogger(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	logger := &mockLogger{}
	notifier := newTestNotifier(t, deliverer, &mockMetrics{}, logger)

	ctx := types.WithRequestID(context.Background(), "trace-abc-123")
	notifier.ProcessRecord(ctx, types.Record{Message: alarmMessage})

	found := false
	for _, arg := range logger.withArgs {
		if arg == "trace-abc-123" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected trace ID in logger With args, got %v", logger.withArgs)
	}
}

func TestProcessRecord_MessageIDEnrichesLogger(t *testing.T) {
	deliverer := &mockDeliverer{report: sentReport()}
	logger := &mockLogger{}
	notifier := newTestNotifier(t, deliverer, &mockMetrics{}, logger)

	record := types.Record{Message: alarmMessage, MessageID: "msg-enrich-42"}
	notifier.ProcessRecord(context.Background(), record)

	found := false
	for _, arg := range logger.withArgs {
		if arg == "msg-enrich-42" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected message ID in logger With args, got %v", logger.withArgs)
	}
}
