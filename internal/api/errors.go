package api

import (
	"errors"
	"net/http"

	"github.com/micro-nova/pifi-go/internal/control"
)

// AppError is a structured API error with HTTP status code.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	ErrNotFound = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: http.StatusNotFound}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: http.StatusBadRequest}
	}
	ErrForbidden = func(msg string) *AppError {
		return &AppError{Code: "FORBIDDEN", Message: msg, Status: http.StatusForbidden}
	}
	ErrUnavailable = func(msg string) *AppError {
		return &AppError{Code: "UNAVAILABLE", Message: msg, Status: http.StatusServiceUnavailable}
	}
	ErrInternal = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: http.StatusInternalServerError}
	}
)

// fromControlError maps registry errors onto API errors.
func fromControlError(err error) *AppError {
	switch {
	case errors.Is(err, control.ErrNotFound):
		return ErrNotFound(err.Error())
	case errors.Is(err, control.ErrOutOfRange):
		return ErrBadRequest(err.Error())
	case errors.Is(err, control.ErrReadOnly):
		return ErrForbidden(err.Error())
	case errors.Is(err, control.ErrClosed):
		return ErrUnavailable(err.Error())
	default:
		return ErrInternal(err.Error())
	}
}
