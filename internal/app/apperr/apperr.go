// Package apperr defines the error taxonomy shared by repositories, services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound signals that no record exists for the requested key.
	ErrNotFound = errors.New("not found")
	// ErrExpired signals that the record exists but is past its validity window.
	ErrExpired = errors.New("expired")
	// ErrValidation signals malformed input; it is raised before any remote call.
	ErrValidation = errors.New("validation failed")
	// ErrQuotaExceeded is a validation error raised when an owner hits a resource cap.
	ErrQuotaExceeded = fmt.Errorf("%w: quota exceeded", ErrValidation)
	// ErrUnauthorized signals that the operation requires an authenticated session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRemote signals a store or network failure.
	ErrRemote = errors.New("remote failure")
	// ErrUnavailable signals that the service refuses work because a local bound is reached.
	ErrUnavailable = errors.New("temporarily unavailable")
)

// ValidationError describes which input field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Quota reports that the owner already holds limit resources of the given kind.
func Quota(resource string, limit int) error {
	return fmt.Errorf("%w: at most %d %s allowed", ErrQuotaExceeded, limit, resource)
}

// Remote wraps a driver error so callers can match it with ErrRemote.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemote, err)
}

// HTTPStatus maps an error onto the status code handlers should respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to clients.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrQuotaExceeded):
		return unwrapQuota(err)
	case errors.Is(err, ErrValidation):
		return "invalid request"
	case errors.Is(err, ErrUnauthorized):
		return "authentication required"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrUnavailable):
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

func unwrapQuota(err error) string {
	// Quota errors carry their own human readable suffix; drop wrapping prefixes.
	const marker = "quota exceeded"
	msg := err.Error()
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i:]
	}
	return marker
}
