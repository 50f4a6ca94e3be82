package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

type AppError struct {
	Code       int    `json:"-"`
	Message    string `json:"error"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	ErrForbidden      = &AppError{Code: http.StatusForbidden, Message: "forbidden"}
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Message: "invalid or expired token"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// NewRateLimitedError carries a retry hint both in the body and the
// Retry-After header (set by HandleError).
func NewRateLimitedError(msg string, retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       http.StatusTooManyRequests,
		Message:    msg,
		RetryAfter: retryAfterSeconds,
	}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.RetryAfter > 0 {
			// Retry hint travels both ways: header for generic clients,
			// body for the app's countdown display.
			w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(appErr.Code)
			json.NewEncoder(w).Encode(appErr)
			return
		}
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
