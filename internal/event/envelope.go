// Package event unwraps SNS delivery envelopes and classifies the inner
// message so the card layer knows which formatter to use.
//
// Parsing here is pure: functions take bytes or records and return values
// or errors. Logging decisions (multi-record warnings, degrade paths) belong
// to the orchestrating notifier.
package event

import (
	"time"

	"github.com/aws/aws-lambda-go/events"

	"cardcast/internal/types"
)

// FirstRecord extracts the first record from an SNS event envelope and
// converts it to the internal record shape.
//
// SNS delivers exactly one record per Lambda invocation, so only the first
// record is meaningful. An envelope with zero records is malformed and
// returns ErrCodeMalformedEnvelope; callers should treat that as fatal for
// the invocation. Envelopes with more than one record are not an error:
// the extra records are skipped and the caller decides whether to log.
func FirstRecord(evt events.SNSEvent) (types.Record, error) {
	if len(evt.Records) == 0 {
		return types.Record{}, types.NewAppError(
			types.ErrCodeMalformedEnvelope,
			"SNS envelope contains no records",
			nil,
		)
	}
	return RecordFromEntity(evt.Records[0].SNS), nil
}

// RecordFromEntity converts an SNS entity from the Lambda event shape into
// the internal record. The timestamp is re-rendered as RFC3339 UTC; a zero
// timestamp becomes the empty string so downstream defaults apply.
func RecordFromEntity(sns events.SNSEntity) types.Record {
	r := types.Record{
		Message:   sns.Message,
		Subject:   sns.Subject,
		Type:      sns.Type,
		MessageID: sns.MessageID,
		TopicARN:  sns.TopicArn,
	}
	if !sns.Timestamp.IsZero() {
		r.Timestamp = sns.Timestamp.UTC().Format(time.RFC3339)
	}
	return r
}
