package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/storyhub/internal/apperror"
)

// ErrorResponse is the standard error shape returned by every endpoint, so
// clients always know what fields to expect regardless of status code.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable category, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response. Headers and status must go out before the
// body — Encode writes, and written headers are final.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends the standard
// error shape. This is the single place the apperror taxonomy meets HTTP:
//
//	Validation       → 400
//	PaymentRequired  → 402 (no credit — /acceptPayment hasn't succeeded)
//	PaymentDeclined  → 402
//	Forbidden        → 403 (not the owner, or comments disabled)
//	NotFound         → 404
//	Conflict         → 409
//	ProviderExchange → 502 (the identity provider failed us)
//	PaymentProcessor → 502
//
// Anything unrecognized is a 500 with a generic message — raw internal errors
// (SQL, file paths) are never exposed to clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrPaymentRequired):
			status = http.StatusPaymentRequired
			errorType = "payment_required"
		case errors.Is(err, apperror.ErrPaymentDeclined):
			status = http.StatusPaymentRequired
			errorType = "payment_declined"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrProviderExchange):
			status = http.StatusBadGateway
			errorType = "provider_exchange_failed"
		case errors.Is(err, apperror.ErrPaymentProcessor):
			status = http.StatusBadGateway
			errorType = "payment_processor_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
