package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/chessmatch/internal/middleware"
	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/users"
)

// APIError represents an API error response
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeNoActiveGame       = "NO_ACTIVE_GAME"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidUsername    = "INVALID_USERNAME"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeInvalidRating      = "INVALID_RATING"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response, echoing the request id assigned by
// the logging middleware so clients can quote it
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	body := he.apiError
	body.RequestID = w.Header().Get(middleware.RequestIDHeader)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: body})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Model errors
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeUserNotFound, Message: "User not found"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeGameNotFound, Message: "Game not found"}}

	// Users errors
	case errors.Is(err, users.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeInvalidCredentials, Message: "Invalid username or password"}}
	case errors.Is(err, users.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Invalid or expired session"}}
	case errors.Is(err, users.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{Code: CodeUsernameExists, Message: "Username already exists"}}
	case errors.Is(err, users.ErrInvalidUsername):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidUsername, Message: users.ErrInvalidUsername.Error()}}
	case errors.Is(err, users.ErrInvalidPassword):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidPassword, Message: users.ErrInvalidPassword.Error()}}
	case errors.Is(err, users.ErrInvalidRating):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRating, Message: users.ErrInvalidRating.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewNoActiveGameError is returned when the user is not in a session
func NewNoActiveGameError() error {
	return &httpError{http.StatusNotFound, APIError{Code: CodeNoActiveGame, Message: "No active game"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
