package common

import (
	"errors"
	"net/http"
)

// AppError is an error that knows how it should be rendered to API clients.
// Package level AppErrors act as sentinels: errors.Is matches on Code, so a
// copy produced by WithErr still matches the original.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Code + ": " + e.Err.Error()
	default:
		return e.Code + ": " + e.Message
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e != nil && t != nil && e.Code == t.Code
}

// WithDetails attaches structured details to e and returns it.
func (e *AppError) WithDetails(details any) *AppError {
	if e == nil {
		return nil
	}
	e.Details = details
	return e
}

// WithErr returns a copy of e wrapping err, leaving e untouched.
func (e *AppError) WithErr(err error) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Err = err
	return &cp
}

// IsAppError reports whether err carries an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// WriteError renders err. AppErrors keep their status and code; anything
// else becomes an opaque 500 so internals never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if err == nil || !errors.As(err, &appErr) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	status, code := appErr.HTTPStatus, appErr.Code
	if status == 0 {
		status = http.StatusBadRequest
	}
	if code == "" {
		code = "BAD_REQUEST"
	}
	JSONError(w, status, code, appErr.Message, appErr.Details)
}
