package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Pipeline and entrypoint code MUST use these constants instead of hardcoded strings.
const (
	// Envelope and classification (400/422)
	ErrCodeMalformedEnvelope  ErrorCode = "envelope_malformed"
	ErrCodeEnvelopeUnreadable ErrorCode = "envelope_unreadable"
	ErrCodeMissingAlarmField  ErrorCode = "message_missing_alarm_field"
	ErrCodeFormatFaultCode    ErrorCode = "format_fault_code_unavailable"

	// Configuration (fatal at startup, before any event is read)
	ErrCodeConfigInvalid       ErrorCode = "config_invalid"
	ErrCodeConfigSecretResolve ErrorCode = "config_secret_resolution_failed"

	// Delivery. Only request construction surfaces as an error; transport and
	// HTTP-level failures are carried in DeliveryReport and never raised.
	ErrCodeDeliveryRequestBuild ErrorCode = "delivery_request_build_failed"
	ErrCodeSubscribeConfirm     ErrorCode = "delivery_subscribe_confirmation_failed"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the ingest API to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "envelope_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "message_"), strings.HasPrefix(s, "format_"):
		return http.StatusUnprocessableEntity // 422
	case strings.HasPrefix(s, "delivery_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "config_"), strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the service.
// All pipeline and entrypoint errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for pipeline errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
