package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"cardcast/internal/types"
)

const (
	headerSNSMessageType = "x-amz-sns-message-type"

	messageTypeNotification = "Notification"
	messageTypeConfirmation = "SubscriptionConfirmation"
)

// maxRequestBodySize caps inbound request bodies at 1 MB. SNS itself limits
// messages to 256 KB, so anything larger is not a legitimate delivery.
const maxRequestBodySize = 1 << 20

// maxConfirmBodyRead bounds how much of the SubscribeURL response is drained
// before the connection is released.
const maxConfirmBodyRead = 4096

// snsMessage is the raw SNS HTTPS delivery body. SNS posts carry signature
// fields beyond those decoded here; unknown fields are accepted.
type snsMessage struct {
	Type             string `json:"Type"`
	MessageID        string `json:"MessageId"`
	TopicARN         string `json:"TopicArn"`
	Subject          string `json:"Subject"`
	Message          string `json:"Message"`
	Timestamp        string `json:"Timestamp"`
	SubscribeURL     string `json:"SubscribeURL"`
	Token            string `json:"Token"`
	SignatureVersion string `json:"SignatureVersion"`
	Signature        string `json:"Signature"`
	SigningCertURL   string `json:"SigningCertURL"`
	UnsubscribeURL   string `json:"UnsubscribeURL"`
}

// eventResponse is the JSON response body for the ingest endpoint.
type eventResponse struct {
	Status    string                `json:"status"`
	Branch    string                `json:"branch,omitempty"`
	Delivery  *types.DeliveryReport `json:"delivery,omitempty"`
	RequestID string                `json:"request_id"`
}

// HandleEvents accepts SNS HTTPS deliveries on POST /v1/events. The SNS
// message type header selects the behavior: notifications run the card
// pipeline, subscription confirmations are completed by fetching the
// SubscribeURL, and anything else is rejected.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	switch msgType := r.Header.Get(headerSNSMessageType); msgType {
	case messageTypeNotification:
		s.handleNotification(w, r)
	case messageTypeConfirmation:
		s.handleSubscriptionConfirmation(w, r)
	default:
		Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeEnvelopeUnreadable,
			"unsupported or missing x-amz-sns-message-type header",
			nil,
			map[string]any{"message_type": msgType},
		))
	}
}

// handleNotification normalizes the SNS message into a record and runs the
// notification pipeline. Delivery is best-effort: a failed webhook POST is
// still an accepted notification, so well-formed requests always get a 200
// and the delivery outcome travels in the response body.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	var msg snsMessage
	if err := decodeSNSMessage(w, r, &msg); err != nil {
		Error(w, r, err)
		return
	}

	record := types.Record{
		Message:   msg.Message,
		Subject:   msg.Subject,
		Type:      msg.Type,
		MessageID: msg.MessageID,
		TopicARN:  msg.TopicARN,
		Timestamp: msg.Timestamp,
	}

	outcome := s.Notifier.ProcessRecord(r.Context(), record)

	JSON(w, r, http.StatusOK, eventResponse{
		Status:    "processed",
		Branch:    string(outcome.Branch),
		Delivery:  &outcome.Report,
		RequestID: types.GetRequestID(r.Context()),
	})
}

// handleSubscriptionConfirmation completes an SNS HTTPS subscription by
// fetching the SubscribeURL. The URL arrives in an unauthenticated request
// body, so it passes the same HTTPS and SSRF checks as the webhook URL before
// any connection is made.
func (s *Server) handleSubscriptionConfirmation(w http.ResponseWriter, r *http.Request) {
	var msg snsMessage
	if err := decodeSNSMessage(w, r, &msg); err != nil {
		Error(w, r, err)
		return
	}

	if msg.SubscribeURL == "" {
		Error(w, r, types.NewAppError(
			types.ErrCodeEnvelopeUnreadable,
			"subscription confirmation carries no SubscribeURL",
			nil,
		))
		return
	}
	if err := types.ValidateWebhookURL(msg.SubscribeURL); err != nil {
		Error(w, r, types.NewAppError(
			types.ErrCodeEnvelopeUnreadable,
			"SubscribeURL is not a valid HTTPS URL",
			err,
		))
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, msg.SubscribeURL, nil)
	if err != nil {
		Error(w, r, types.NewAppError(
			types.ErrCodeEnvelopeUnreadable,
			"SubscribeURL is unusable",
			err,
		))
		return
	}

	resp, err := s.confirmClient.Do(req)
	if err != nil {
		s.Logger.Error("subscription confirmation request failed",
			"topic_arn", msg.TopicARN,
			"error", err.Error(),
		)
		Error(w, r, types.NewAppError(
			types.ErrCodeSubscribeConfirm,
			"subscription confirmation request failed",
			err,
		))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxConfirmBodyRead))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.Logger.Error("subscription confirmation rejected",
			"topic_arn", msg.TopicARN,
			"status", resp.StatusCode,
		)
		Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeSubscribeConfirm,
			"subscription confirmation was rejected",
			nil,
			map[string]any{"status": resp.StatusCode},
		))
		return
	}

	s.Logger.Info("subscription confirmed", "topic_arn", msg.TopicARN)

	JSON(w, r, http.StatusOK, eventResponse{
		Status:    "confirmed",
		RequestID: types.GetRequestID(r.Context()),
	})
}

// decodeSNSMessage reads the request body into dst with the body size cap
// applied. Unknown fields are tolerated; SNS controls the wire format, not
// this service.
func decodeSNSMessage(w http.ResponseWriter, r *http.Request, dst *snsMessage) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return types.NewAppError(
			types.ErrCodeEnvelopeUnreadable,
			"request body is not a JSON SNS message",
			err,
		)
	}
	return nil
}
