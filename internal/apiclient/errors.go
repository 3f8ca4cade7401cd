package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind identifies which member of the closed error set an error belongs to.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindServer         Kind = "server"
	KindNetwork        Kind = "network"
	KindAPI            Kind = "api"
)

// Error is implemented by every error returned from the client.
type Error interface {
	error
	Kind() Kind
	StatusCode() int
}

// APIError is a failed response which doesn't fall into a more specific kind.
type APIError struct {
	Status  int
	Code    string
	Message string
}

var _ Error = (*APIError)(nil)

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (status %d)", e.Status)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

func (e *APIError) Kind() Kind      { return KindAPI }
func (e *APIError) StatusCode() int { return e.Status }

// ValidationError is returned for a 400. Fields is keyed by field name when the server reports per field problems.
type ValidationError struct {
	APIError
	Fields map[string][]string
}

func (e *ValidationError) Kind() Kind { return KindValidation }

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "validation failed"
	}
	if len(e.Fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// AuthenticationError is returned when the session is missing or expired.
type AuthenticationError struct{ APIError }

func (e *AuthenticationError) Kind() Kind { return KindAuthentication }

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return "authentication failed: " + e.Message
}

// AuthorizationError is returned for a 403.
type AuthorizationError struct{ APIError }

func (e *AuthorizationError) Kind() Kind { return KindAuthorization }

func (e *AuthorizationError) Error() string {
	if e.Message == "" {
		return "permission denied"
	}
	return "permission denied: " + e.Message
}

// NotFoundError is returned for a 404.
type NotFoundError struct{ APIError }

func (e *NotFoundError) Kind() Kind { return KindNotFound }

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return "not found"
	}
	return "not found: " + e.Message
}

// ServerError is returned for a 5xx.
type ServerError struct{ APIError }

func (e *ServerError) Kind() Kind { return KindServer }

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (status %d)", e.Status)
	}
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
}

// NetworkError is returned when the server could not be reached or the attempt timed out.
type NetworkError struct {
	Err     error
	Timeout bool
}

var _ Error = (*NetworkError)(nil)

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("network timeout: %s", e.Err)
	}
	return fmt.Sprintf("network error: %s", e.Err)
}

func (e *NetworkError) Unwrap() error   { return e.Err }
func (e *NetworkError) Kind() Kind      { return KindNetwork }
func (e *NetworkError) StatusCode() int { return 0 }

type errorBody struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   json.RawMessage `json:"error"`
	Errors  map[string]any  `json:"errors"`
	Fields  map[string]any  `json:"fields"`
}

type nestedError struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Fields  map[string]any `json:"fields"`
	Details map[string]any `json:"details"`
}

func normalizeFields(in map[string]any, out map[string][]string) {
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = append(out[k], val)
		case []any:
			for _, item := range val {
				out[k] = append(out[k], fmt.Sprintf("%v", item))
			}
		default:
			out[k] = append(out[k], fmt.Sprintf("%v", val))
		}
	}
}

// parseErrorBody extracts the message, code and field errors from the many error shapes the backend uses.
func parseErrorBody(buf []byte) (string, string, map[string][]string) {
	var body errorBody
	if err := json.Unmarshal(buf, &body); err != nil {
		return strings.TrimSpace(string(buf)), "", nil
	}
	message, code := body.Message, body.Code
	fields := make(map[string][]string)
	normalizeFields(body.Errors, fields)
	normalizeFields(body.Fields, fields)
	if len(body.Error) > 0 {
		var str string
		if err := json.Unmarshal(body.Error, &str); err == nil {
			if message == "" {
				message = str
			}
		} else {
			var nested nestedError
			if err := json.Unmarshal(body.Error, &nested); err == nil {
				if message == "" {
					message = nested.Message
				}
				if code == "" {
					code = nested.Code
				}
				normalizeFields(nested.Fields, fields)
				normalizeFields(nested.Details, fields)
			}
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return message, code, fields
}

// newStatusError maps an HTTP status and body into the error taxonomy.
func newStatusError(status int, buf []byte) Error {
	message, code, fields := parseErrorBody(buf)
	base := APIError{Status: status, Code: code, Message: message}
	switch {
	case status == http.StatusBadRequest:
		return &ValidationError{APIError: base, Fields: fields}
	case status == http.StatusUnauthorized:
		return &AuthenticationError{base}
	case status == http.StatusForbidden:
		return &AuthorizationError{base}
	case status == http.StatusNotFound:
		return &NotFoundError{base}
	case status >= 500:
		return &ServerError{base}
	}
	return &base
}

// KindOf returns the kind of the error or empty string if the error did not come from the client.
func KindOf(err error) Kind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

// ShouldLogout returns true if the error means the session is gone.
func ShouldLogout(err error) bool {
	return KindOf(err) == KindAuthentication
}

// IsRetriable returns true for errors that a caller may reasonably retry by hand.
func IsRetriable(err error) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind() {
	case KindNetwork, KindServer:
		return true
	case KindAPI:
		return e.StatusCode() >= 500
	}
	return false
}

var messages = map[Kind]string{
	KindAuthentication: "Your session has expired. Please log in again.",
	KindAuthorization:  "You do not have permission to perform this action.",
	KindNotFound:       "The requested resource was not found.",
	KindServer:         "The server encountered an error. Please try again later.",
	KindNetwork:        "Unable to reach the server. Check your connection and try again.",
}

// Message returns a user facing message for the error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind() {
	case KindValidation:
		return "Please check your input: " + e.Error()
	case KindAPI:
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "An unexpected error occurred."
	}
	return messages[e.Kind()]
}
