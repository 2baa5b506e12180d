package types

import "log/slog"

// redactedPlaceholder is the string used to replace secret values in logs and serialization.
const redactedPlaceholder = "***REDACTED***"

// redactedJSON is the pre-computed JSON encoding of the redacted placeholder.
var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or serialization
// of sensitive values, such as the webhook URL whose path segment acts as a
// capability token. It overrides String(), MarshalJSON(), and LogValue() to
// return a redacted placeholder, ensuring secrets are never leaked through fmt
// functions, JSON output, or structured log entries.
//
// Use Unmask() to retrieve the raw plaintext value when it is genuinely needed
// (e.g., constructing the outbound HTTP request).
type SecretString string

// String returns a redacted placeholder instead of the raw value.
// This is invoked by fmt.Sprintf, fmt.Println, and any other function
// that uses the fmt.Stringer interface.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
// This prevents secret values from being included in JSON-serialized
// config dumps or structured log entries.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// LogValue implements slog.LogValuer so secrets logged as attribute values
// are redacted regardless of the handler in use.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// Unmask returns the raw plaintext value of the secret.
// Usage of this method should be strictly audited and limited to cases
// where the actual secret value is required (e.g., the delivery client's
// target URL).
func (s SecretString) Unmask() string {
	return string(s)
}
