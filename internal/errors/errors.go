// Package errors defines the error kinds shared by every component.
// Import it as apperrors to avoid shadowing the standard library package.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a component returns to the shell or the RPC layer
// matches exactly one of these with errors.Is.
var (
	ErrTransport  = errors.New("transport error")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("authentication error")
	ErrStore      = errors.New("store error")
	ErrValidation = errors.New("validation error")
)

// AppError carries a kind, a message fit for the user and the underlying cause.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Transport reports a network or protocol failure talking to an external service.
func Transport(message string, err error) *AppError {
	return &AppError{Kind: ErrTransport, Message: message, Err: err}
}

// NotFound reports a valid request that matched nothing.
func NotFound(message string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: message}
}

// Auth reports bad credentials or a policy rejection. The message is shown to
// the user as-is.
func Auth(message string, err error) *AppError {
	return &AppError{Kind: ErrAuth, Message: message, Err: err}
}

// Store reports a failed document or blob operation.
func Store(message string, err error) *AppError {
	return &AppError{Kind: ErrStore, Message: message, Err: err}
}

// Validation reports missing or out-of-range input.
func Validation(message string, err error) *AppError {
	return &AppError{Kind: ErrValidation, Message: message, Err: err}
}

// KindOf returns the kind sentinel err matches, or nil for foreign errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrAuth, ErrValidation, ErrNotFound, ErrTransport, ErrStore} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// MessageOf returns the user-facing message of the outermost AppError in err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
