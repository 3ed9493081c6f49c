package api

import (
	"fmt"
	"net/http"
)

// Error is a request failure with an HTTP status. Only the message
// serializes; the body is always {"error": "..."}.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// BadRequest rejects malformed query parameters.
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// NotFound marks a missing resource or an unimplemented endpoint.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// InternalError surfaces an upstream failure the handler cannot recover from.
func InternalError(message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message}
}
