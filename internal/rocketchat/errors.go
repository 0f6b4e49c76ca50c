package rocketchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failure reported by the chat server. The server's
// envelope carries a human-readable message and no structured error
// code, so callers must treat it as opaque and display-only.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rocketchat: %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is an *APIError for a rejected or
// expired credential.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// errorEnvelope covers both failure shapes the server produces:
// {"success":false,"error":"..."} and {"status":"error","message":"..."}.
type errorEnvelope struct {
	Success *bool  `json:"success,omitempty"`
	Status  string `json:"status,omitempty"`
	Err     string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e errorEnvelope) text() string {
	if e.Err != "" {
		return e.Err
	}
	return e.Message
}

func parseAPIError(statusCode int, body []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.text() != "" {
		return &APIError{StatusCode: statusCode, Message: env.text()}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
	}
}

// checkEnvelope converts a 2xx response whose body still reports
// failure into an *APIError.
func checkEnvelope(env errorEnvelope) error {
	if env.Success != nil && !*env.Success {
		return &APIError{StatusCode: http.StatusOK, Message: env.text()}
	}
	if env.Status == "error" {
		return &APIError{StatusCode: http.StatusOK, Message: env.text()}
	}
	return nil
}
