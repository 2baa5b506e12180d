package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cardcast/internal/event"
	"cardcast/internal/types"
)

// Default values for audit card facts when the CloudTrail detail omits a
// field.
const (
	defaultEventName    = "UnknownEvent"
	defaultErrorMessage = "No error message provided"
	defaultDetailField  = "Unknown"
	defaultSubject      = "No Subject"
)

// faultCodeSegment is the zero-based colon-delimited segment of a CloudTrail
// error message that carries the fault code. AWS error messages of the form
// "arn:aws:...:...: CODE further text" put the code in the seventh segment.
const faultCodeSegment = 6

// Formatter turns classified messages into card data. Overrides are
// consulted for alarm cards only; audit and generic cards are always
// computed.
type Formatter struct {
	overrides *OverrideTable
	logger    types.Logger
}

// NewFormatter creates a Formatter. A nil override table behaves as an
// empty one.
func NewFormatter(overrides *OverrideTable, logger types.Logger) *Formatter {
	if overrides == nil {
		overrides = NewOverrideTable(nil)
	}
	return &Formatter{
		overrides: overrides,
		logger:    logger,
	}
}

// FormatAlarm renders a CloudWatch alarm state change. A transition into
// the ALARM state (case-insensitive) is an Attention card titled
// "Red Alert"; every other target state is a Good card titled "Resolved".
// An override registered for the exact (state, alarm name) pair replaces
// the computed card wholesale.
func (f *Formatter) FormatAlarm(alarm event.AlarmMessage) types.CardData {
	if data, ok := f.overrides.Lookup(alarm.NewStateValue, alarm.AlarmName); ok {
		return data
	}

	colour := types.ColourGood
	prefix := "Resolved"
	if strings.ToLower(alarm.NewStateValue) == "alarm" {
		colour = types.ColourAttention
		prefix = "Red Alert"
	}

	return types.CardData{
		Colour: colour,
		Title:  fmt.Sprintf("%s - %s", prefix, alarm.AlarmName),
		Text: fmt.Sprintf("**%s** changed from **%s** to **%s**\n\nReason: %s",
			alarm.AlarmName, alarm.OldStateValue, alarm.NewStateValue, alarm.NewStateReason),
	}
}

// auditFacts is the ordered fact set rendered into an audit card body.
type auditFacts struct {
	Subject   string `json:"Subject"`
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	Message   string `json:"Message"`
	Timestamp string `json:"Timestamp"`
}

// FormatAudit renders a CloudTrail service event as an Attention card. When
// the error message carries a colon-delimited fault code, the code joins the
// title; an error message whose colons do not yield a code falls back to the
// short title form rather than failing the notification.
func (f *Formatter) FormatAudit(audit event.AuditMessage) types.CardData {
	eventName := audit.Detail.EventName
	if eventName == "" {
		eventName = defaultEventName
	}
	reason := audit.Detail.ErrorMessage
	if reason == "" {
		reason = defaultErrorMessage
	}

	title := fmt.Sprintf("Alert - Issue: %s", eventName)
	if strings.Contains(reason, ":") {
		code, err := faultCode(reason)
		if err != nil {
			f.logger.Warn("fault code unavailable, using short audit title",
				"event_name", eventName,
				"error", err.Error(),
			)
		} else {
			title = fmt.Sprintf("Alert - %s - Issue: %s", code, eventName)
		}
	}

	text := prettyJSON(auditFacts{
		Subject:   eventName,
		Type:      valueOr(audit.Detail.EventType, defaultDetailField),
		MessageID: valueOr(audit.Detail.EventID, defaultDetailField),
		Message:   reason,
		Timestamp: valueOr(audit.Detail.EventTime, defaultDetailField),
	})

	return types.CardData{
		Colour: types.ColourAttention,
		Title:  title,
		Text:   text,
	}
}

// genericFacts is the ordered fact set rendered into a generic card body.
// Fields missing from the record serialize as empty strings.
type genericFacts struct {
	Subject   string `json:"Subject"`
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	TopicARN  string `json:"TopicArn"`
	Message   string `json:"Message"`
	Timestamp string `json:"Timestamp"`
}

// FormatGeneric renders any message that is neither an alarm nor an audit
// event as a Warning card echoing the record's envelope fields.
func (f *Formatter) FormatGeneric(record types.Record) types.CardData {
	subject := record.Subject
	if subject == "" {
		subject = defaultSubject
	}

	text := prettyJSON(genericFacts{
		Subject:   record.Subject,
		Type:      record.Type,
		MessageID: record.MessageID,
		TopicARN:  record.TopicARN,
		Message:   record.Message,
		Timestamp: record.Timestamp,
	})

	return types.CardData{
		Colour: types.ColourWarning,
		Title:  fmt.Sprintf("Alert - %s", subject),
		Text:   text,
	}
}

// faultCode extracts the fault code from a CloudTrail error message: the
// seventh colon-delimited segment, truncated at its first space. Messages
// with fewer segments return ErrCodeFormatFaultCode so the caller can fall
// back to a title without a code.
func faultCode(reason string) (string, error) {
	parts := strings.Split(reason, ":")
	if len(parts) <= faultCodeSegment {
		return "", types.NewAppErrorWithDetails(
			types.ErrCodeFormatFaultCode,
			"error message has too few colon-delimited segments for a fault code",
			nil,
			map[string]interface{}{"segments": len(parts)},
		)
	}
	code := parts[faultCodeSegment]
	if i := strings.IndexByte(code, ' '); i >= 0 {
		code = code[:i]
	}
	return code, nil
}

// valueOr returns s, or fallback when s is empty.
func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// prettyJSON renders a fact struct as two-space indented JSON without HTML
// escaping, preserving struct field order. Fact structs hold only string
// fields, so encoding cannot fail.
func prettyJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
