package api

import (
	"net/http"

	"github.com/bluefin-ops/healthdeck/internal/source"
)

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	ErrCodeQueryMalformed    = "QUERY_MALFORMED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Standard errors
var (
	ErrNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "Resource not found",
		Status:  http.StatusNotFound,
	}

	ErrInternalServer = &Error{
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
)

// NewBadRequest creates a bad request error with a custom message.
func NewBadRequest(message string) *Error {
	return &Error{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// FromSourceError maps a load failure to its API error. A source that
// cannot be reached is a 502 the user can retry via Refresh; a
// malformed response indicates a configuration bug and maps to a 500.
func FromSourceError(err error) *Error {
	switch {
	case source.IsMalformed(err):
		return &Error{
			Code:    ErrCodeQueryMalformed,
			Message: err.Error(),
			Status:  http.StatusInternalServerError,
		}
	case source.IsUnavailable(err):
		return &Error{
			Code:    ErrCodeSourceUnavailable,
			Message: err.Error(),
			Status:  http.StatusBadGateway,
		}
	default:
		return ErrInternalServer
	}
}
