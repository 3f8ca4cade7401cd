package apiclient

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStatusError(t *testing.T) {
	assert.IsType(t, &ValidationError{}, newStatusError(http.StatusBadRequest, nil))
	assert.IsType(t, &AuthenticationError{}, newStatusError(http.StatusUnauthorized, nil))
	assert.IsType(t, &AuthorizationError{}, newStatusError(http.StatusForbidden, nil))
	assert.IsType(t, &NotFoundError{}, newStatusError(http.StatusNotFound, nil))
	assert.IsType(t, &ServerError{}, newStatusError(http.StatusBadGateway, nil))
	assert.IsType(t, &APIError{}, newStatusError(http.StatusConflict, nil))
}

func TestParseErrorBody(t *testing.T) {
	msg, code, fields := parseErrorBody([]byte(`{"success":false,"error":"bad things"}`))
	assert.Equal(t, "bad things", msg)
	assert.Empty(t, code)
	assert.Nil(t, fields)

	msg, code, fields = parseErrorBody([]byte(`{"message":"invalid","code":"E1","errors":{"email":["taken","too long"]}}`))
	assert.Equal(t, "invalid", msg)
	assert.Equal(t, "E1", code)
	assert.Equal(t, []string{"taken", "too long"}, fields["email"])

	msg, _, _ = parseErrorBody([]byte("upstream connect error"))
	assert.Equal(t, "upstream connect error", msg)
}

func TestClassification(t *testing.T) {
	auth := &AuthenticationError{APIError{Status: 401}}
	assert.True(t, ShouldLogout(auth))
	assert.True(t, ShouldLogout(fmt.Errorf("wrapped: %w", auth)))
	assert.False(t, IsRetriable(auth))

	assert.False(t, ShouldLogout(&AuthorizationError{APIError{Status: 403}}))
	assert.True(t, IsRetriable(&ServerError{APIError{Status: 503}}))
	assert.True(t, IsRetriable(&NetworkError{Err: fmt.Errorf("refused")}))
	assert.True(t, IsRetriable(&APIError{Status: 599}))
	assert.False(t, IsRetriable(&APIError{Status: 409}))
	assert.False(t, IsRetriable(&NotFoundError{APIError{Status: 404}}))
	assert.False(t, IsRetriable(fmt.Errorf("plain")))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "Your session has expired. Please log in again.", Message(&AuthenticationError{}))
	assert.Equal(t, "You do not have permission to perform this action.", Message(&AuthorizationError{}))
	assert.Equal(t, "The requested resource was not found.", Message(&NotFoundError{}))
	assert.Equal(t, "The server encountered an error. Please try again later.", Message(&ServerError{}))
	assert.Equal(t, "Unable to reach the server. Check your connection and try again.", Message(&NetworkError{Err: fmt.Errorf("x")}))
	assert.Equal(t, "Please check your input: name required", Message(&ValidationError{APIError: APIError{Message: "name required"}}))
	assert.Equal(t, "conflict", Message(&APIError{Status: 409, Message: "conflict"}))
	assert.Equal(t, "An unexpected error occurred.", Message(&APIError{Status: 409}))
	assert.Equal(t, "plain", Message(fmt.Errorf("plain")))
}
