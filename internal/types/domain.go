package types

import (
	"time"
)

// Record is the single notification unit extracted from the invocation
// envelope. Message carries a second, nested JSON-encoded payload whose shape
// selects the formatting branch; the remaining fields are envelope metadata,
// used verbatim by the generic branch.
type Record struct {
	Message   string `json:"Message"`
	Subject   string `json:"Subject"`
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	TopicARN  string `json:"TopicArn"`
	Timestamp string `json:"Timestamp"`
}

// CardData is the ephemeral formatting result handed to the card document
// builder: one accent colour, a one-line title, and a markdown-capable body.
// Created fresh per invocation; never persisted.
type CardData struct {
	Colour Colour `json:"colour"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// DeliveryReport is the outcome of a single best-effort webhook delivery
// attempt. Failures are terminal and acknowledged: they are carried here as
// data rather than raised as errors, so the invocation never signals its
// caller to redeliver.
type DeliveryReport struct {
	// ID is a synthetic identifier for correlating the attempt across log lines.
	ID string `json:"id"`

	// Status is sent for any 2xx response, failed otherwise.
	Status DeliveryStatus `json:"status"`

	// HTTPStatus is the response status code. Zero when no response was
	// received (connection failure, breaker open).
	HTTPStatus int `json:"http_status,omitempty"`

	// FailureReason holds the status line plus a truncated response body, or
	// the connection error text. Empty on success.
	FailureReason string `json:"failure_reason,omitempty"`

	// Elapsed is the wall-clock duration of the attempt.
	Elapsed time.Duration `json:"elapsed"`
}

// Sent reports whether the attempt was acknowledged with a success status.
func (r DeliveryReport) Sent() bool {
	return r.Status == DeliveryStatusSent
}
