package event

import (
	"encoding/json"

	"cardcast/internal/types"
)

// auditDetailType is the detail-type marker CloudTrail service events carry
// in their SNS message body.
const auditDetailType = "AWS Service Event via CloudTrail"

// alarmStateFields are the keys an alarm state-change message must carry
// beyond AlarmName for the alarm card to be formattable.
var alarmStateFields = []string{"OldStateValue", "NewStateValue", "NewStateReason"}

// AlarmMessage is the decoded CloudWatch alarm state-change notification.
type AlarmMessage struct {
	AlarmName      string `json:"AlarmName"`
	OldStateValue  string `json:"OldStateValue"`
	NewStateValue  string `json:"NewStateValue"`
	NewStateReason string `json:"NewStateReason"`
}

// AuditMessage is the decoded CloudTrail service event notification. Only
// the fields the audit card renders are decoded; everything else in the
// event stays in the raw record message.
type AuditMessage struct {
	DetailType string      `json:"detail-type"`
	Detail     AuditDetail `json:"detail"`
}

// AuditDetail holds the nested detail object of a CloudTrail service event.
// These are the fields the audit card renders; all are optional in the wire
// format and default at formatting time.
type AuditDetail struct {
	EventName    string `json:"eventName"`
	ErrorMessage string `json:"errorMessage"`
	EventType    string `json:"eventType"`
	EventID      string `json:"eventID"`
	EventTime    string `json:"eventTime"`
}

// Classification is the tagged result of classifying a record's message.
// Exactly one payload pointer is set for alarm and audit kinds; the generic
// kind carries no payload because the generic card renders the record
// fields directly.
type Classification struct {
	Kind  types.MessageKind
	Alarm *AlarmMessage
	Audit *AuditMessage
}

// Classify decodes the record's Message body and decides which card family
// it belongs to:
//
//   - an object with an AlarmName key is an alarm state change
//   - an object whose detail-type equals the CloudTrail marker is an
//     audit event
//   - everything else, including bodies that are not JSON objects at all,
//     is generic
//
// Classification never fails for unrecognized content; the generic kind is
// the catch-all. The only error case is an alarm message that is missing
// required state fields (ErrCodeMissingAlarmField), because a half-formed
// alarm card would be misleading.
func Classify(record types.Record) (Classification, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(record.Message), &probe); err != nil || probe == nil {
		return Classification{Kind: types.KindGeneric}, nil
	}

	if _, ok := probe["AlarmName"]; ok {
		return classifyAlarm(record, probe)
	}

	if raw, ok := probe["detail-type"]; ok {
		var detailType string
		if err := json.Unmarshal(raw, &detailType); err == nil && detailType == auditDetailType {
			var audit AuditMessage
			if err := json.Unmarshal([]byte(record.Message), &audit); err == nil {
				return Classification{Kind: types.KindAudit, Audit: &audit}, nil
			}
			// The detail payload has an unexpected shape. Fall through to
			// generic rather than dropping the notification.
		}
	}

	return Classification{Kind: types.KindGeneric}, nil
}

// classifyAlarm validates and decodes an alarm state-change message. Key
// presence is checked on the probe map so that a field explicitly set to
// null still counts as present, matching how SNS publishes alarm payloads.
func classifyAlarm(record types.Record, probe map[string]json.RawMessage) (Classification, error) {
	var missing []string
	for _, field := range alarmStateFields {
		if _, ok := probe[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		details := map[string]interface{}{
			"missing_fields": missing,
		}
		var name string
		if raw, ok := probe["AlarmName"]; ok {
			if err := json.Unmarshal(raw, &name); err == nil && name != "" {
				details["alarm_name"] = name
			}
		}
		return Classification{}, types.NewAppErrorWithDetails(
			types.ErrCodeMissingAlarmField,
			"alarm message is missing required state fields",
			nil,
			details,
		)
	}

	var alarm AlarmMessage
	if err := json.Unmarshal([]byte(record.Message), &alarm); err != nil {
		// All keys are present but at least one holds a non-string value.
		// Treat the message as generic instead of failing the notification.
		return Classification{Kind: types.KindGeneric}, nil
	}
	return Classification{Kind: types.KindAlarm, Alarm: &alarm}, nil
}
