package retdec

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingAPIKey = errors.New("API key is required. Provide it or set RETDEC_API_KEY")
)

const authenticationFailedMessage = "authentication with the given API key failed (is your API key set correctly?)"

// APIError carries the details of a non-success HTTP response from the
// RetDec API. Typed errors below embed it.
type APIError struct {
	StatusCode  int
	Code        int
	Message     string
	Description string
	Body        []byte
	RequestID   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.RequestID != "" {
		return fmt.Sprintf("retdec api error (%d): %s (request_id=%s)", e.StatusCode, e.Description, e.RequestID)
	}
	return fmt.Sprintf("retdec api error (%d): %s", e.StatusCode, e.Description)
}

// AuthenticationError is returned when the API rejects the API key (HTTP 401).
type AuthenticationError struct{ *APIError }

func (e *AuthenticationError) Error() string {
	return authenticationFailedMessage
}

func (e *AuthenticationError) Unwrap() error {
	if e == nil || e.APIError == nil {
		return nil
	}
	return e.APIError
}

// UnknownAPIError is any other error reported by the API. Its string form is
// the description sent by the service.
type UnknownAPIError struct{ *APIError }

// NewUnknownAPIError builds an UnknownAPIError from the three fields of an API
// error body.
func NewUnknownAPIError(code int, message, description string) *UnknownAPIError {
	return &UnknownAPIError{APIError: &APIError{
		StatusCode:  code,
		Code:        code,
		Message:     message,
		Description: description,
	}}
}

func (e *UnknownAPIError) Error() string {
	if e == nil || e.APIError == nil {
		return ""
	}
	return e.Description
}

func (e *UnknownAPIError) Unwrap() error {
	if e == nil || e.APIError == nil {
		return nil
	}
	return e.APIError
}

// DecompilationFailedError is the default outcome of waiting on a
// decompilation that the service reports as failed.
type DecompilationFailedError struct {
	ID      string
	Message string
}

func (e *DecompilationFailedError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("decompilation failed: %s", e.Message)
	}
	return fmt.Sprintf("decompilation %s failed: %s", e.ID, e.Message)
}

// InvalidValueError is returned when a caller-supplied parameter is rejected
// before any request is sent.
type InvalidValueError struct {
	Name  string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %q", e.Name, e.Value)
}

// apiErrorFromResponse maps an HTTP status code and optional JSON error body
// to a typed error.
func apiErrorFromResponse(status int, body []byte, headers http.Header, requestIDHeader string) error {
	requestID := ""
	if headers != nil && requestIDHeader != "" {
		requestID = headers.Get(requestIDHeader)
	}

	base := &APIError{
		StatusCode: status,
		Body:       body,
		RequestID:  requestID,
	}

	if status == http.StatusUnauthorized {
		base.Code = status
		base.Message = http.StatusText(status)
		base.Description = authenticationFailedMessage
		return &AuthenticationError{APIError: base}
	}

	base.Code, base.Message, base.Description = extractErrorDetail(status, body)
	return &UnknownAPIError{APIError: base}
}

// extractErrorDetail reads {code, message, description} from an error body.
// Missing fields fall back to the HTTP status, its text, and the message.
func extractErrorDetail(status int, body []byte) (int, string, string) {
	var parsed struct {
		Code        *int    `json:"code"`
		Message     *string `json:"message"`
		Description *string `json:"description"`
	}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &parsed)
	}

	code := status
	if parsed.Code != nil {
		code = *parsed.Code
	}
	message := http.StatusText(status)
	if parsed.Message != nil {
		message = *parsed.Message
	}
	description := message
	if parsed.Description != nil {
		description = *parsed.Description
	}
	return code, message, description
}
