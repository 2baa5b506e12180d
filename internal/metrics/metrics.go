// Package metrics publishes delivery telemetry to CloudWatch. Publishing is
// fire-and-forget: CloudWatch errors are logged and never surfaced to the
// delivery pipeline, which keeps the webhook POST the invocation's only
// load-bearing side effect.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"cardcast/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits delivery outcome and latency metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - DeliveryAttempt: Dims {Branch, Status} -- on every delivery outcome
//   - DeliverySuccess / DeliveryFailed: Dims {Branch} -- outcome counters
//   - DeliveryLatency: Dims {Branch} -- wall-clock time of the webhook POST
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to the given
// namespace. An empty namespace falls back to types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDelivery emits the attempt counter plus the matching outcome counter
// in a single PutMetricData call.
func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, branch types.MessageKind, status types.DeliveryStatus) {
	outcome := types.MetricDeliveryFailed
	if status == types.DeliveryStatusSent {
		outcome = types.MetricDeliverySuccess
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricDeliveryAttempt),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(types.DimBranch),
						Value: aws.String(string(branch)),
					},
					{
						Name:  aws.String(types.DimStatus),
						Value: aws.String(string(status)),
					},
				},
			},
			{
				MetricName: aws.String(outcome),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(types.DimBranch),
						Value: aws.String(string(branch)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record delivery metric",
			"error", err.Error(),
			"branch", string(branch),
			"status", string(status),
		)
	}
}

// RecordLatency emits the delivery latency with the Branch dimension.
// Duration is recorded in milliseconds for CloudWatch precision.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, branch types.MessageKind, elapsed time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricDeliveryLatency),
				Value:      aws.Float64(float64(elapsed.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(types.DimBranch),
						Value: aws.String(string(branch)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record latency metric",
			"error", err.Error(),
			"branch", string(branch),
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}
}

// NoopMetrics discards all telemetry. It is the default publisher when
// metrics are not enabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordDelivery(_ context.Context, _ types.MessageKind, _ types.DeliveryStatus) {}
func (NoopMetrics) RecordLatency(_ context.Context, _ types.MessageKind, _ time.Duration)         {}
