package domain

import (
	"context"
	"errors"
	"net/http"
)

// StatusError is implemented by errors that came from an HTTP response.
type StatusError interface {
	error
	StatusCode() int
}

// Client-side error taxonomy. Every failure a component reports is one of these.
type (
	// ValidationError is a local precondition failure; no request was issued.
	ValidationError struct {
		Message string
	}

	// AuthError means bad credentials, a missing session or a rejected credential.
	AuthError struct {
		Status  int // 0 when raised locally
		Message string
	}

	// NotFoundError indicates the requested resource does not exist.
	NotFoundError struct {
		Message string
	}

	// ServerError is any other failure reported by the backend.
	ServerError struct {
		Status  int
		Message string
	}

	// NetworkError means no response was obtained.
	NetworkError struct {
		Message string
		Err     error
	}
)

func (e *ValidationError) Error() string { return e.Message }
func (e *AuthError) Error() string       { return e.Message }
func (e *NotFoundError) Error() string   { return e.Message }
func (e *ServerError) Error() string     { return e.Message }
func (e *NetworkError) Error() string    { return e.Message }

func (e *AuthError) StatusCode() int     { return e.Status }
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }
func (e *ServerError) StatusCode() int   { return e.Status }

func (e *NetworkError) Unwrap() error { return e.Err }

// Sentinel errors - use with errors.Is()
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
)

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *AuthError) Is(target error) bool       { return target == ErrUnauthorized }
func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ServerError) Is(target error) bool     { return target == ErrServer }
func (e *NetworkError) Is(target error) bool    { return target == ErrNetwork }

// NewValidationError is a shorthand used by the services.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// ErrNotSignedIn is returned by authenticated operations when the session
// holds no credential.
var ErrNotSignedIn = &AuthError{Message: "not signed in"}

// Message converts any error into one display-ready line. Unknown errors get
// a generic text so internal details never reach the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		validationErr *ValidationError
		authErr       *AuthError
		notFoundErr   *NotFoundError
		serverErr     *ServerError
		networkErr    *NetworkError
	)

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &authErr):
		return orDefault(authErr.Message, "Authentication failed")
	case errors.As(err, &notFoundErr):
		return orDefault(notFoundErr.Message, "Not found")
	case errors.As(err, &serverErr):
		return orDefault(serverErr.Message, "An error occurred during the API call")
	case errors.As(err, &networkErr):
		return "Could not reach the server. Please try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled"
	default:
		return "Something went wrong"
	}
}

// Reportable reports whether err is worth forwarding to telemetry:
// backend and transport failures, not user mistakes.
func Reportable(err error) bool {
	return errors.Is(err, ErrServer) || errors.Is(err, ErrNetwork)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
