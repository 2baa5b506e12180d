package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliverySuccess = "DeliverySuccess"
	MetricDeliveryFailed  = "DeliveryFailed"
	MetricDeliveryLatency = "DeliveryLatency"

	// Dimension Keys
	DimBranch = "Branch"
	DimStatus = "Status"

	// Default Metric Namespace (overridable via METRICS_NAMESPACE)
	MetricNamespace = "CardCast/Delivery"
)
