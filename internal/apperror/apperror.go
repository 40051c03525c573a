package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the categories the application distinguishes.
// Services return these (wrapped in an *AppError); the HTTP layer maps each
// category to a status code or redirect in exactly one place (handler/response.go).
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrProviderExchange = errors.New("provider exchange failed")
	ErrPaymentDeclined  = errors.New("payment declined")
	ErrPaymentProcessor = errors.New("payment processor error")
	ErrPaymentRequired  = errors.New("payment required")
)

type AppError struct {
	Err     error  // category sentinel (one of the vars above)
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// ProviderExchange wraps a failed OAuth authorization-code exchange.
// The login callback redirects back to the public landing page; the user
// recovers by retrying the login.
func ProviderExchange(provider string) *AppError {
	return &AppError{
		Err:     ErrProviderExchange,
		Message: fmt.Sprintf("authentication with %s failed", provider),
	}
}

// PaymentDeclined reports a processor-side decline (bad card, insufficient
// funds). The payment workflow resets; no post is created.
func PaymentDeclined(message string) *AppError {
	return &AppError{
		Err:     ErrPaymentDeclined,
		Message: message,
	}
}

// PaymentProcessor reports a failure talking to the payment processor
// (network error, processor outage) as opposed to a decline.
func PaymentProcessor(message string) *AppError {
	return &AppError{
		Err:     ErrPaymentProcessor,
		Message: message,
	}
}

// PaymentRequired indicates the caller tried to author a post without a
// successful charge in the current session.
func PaymentRequired() *AppError {
	return &AppError{
		Err:     ErrPaymentRequired,
		Message: "a completed payment is required before authoring a post",
	}
}
