// Package respond writes JSON responses and maps service errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/checkout"
	"github.com/feyxa/commerce/internal/service/models/escrow"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/services/cartrecorder"
	"github.com/feyxa/commerce/pkg/servicetoken"
)

type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// Error writes {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorResponse{Error: message})
}

// StatusOf maps an error returned by a service to an HTTP status.
func StatusOf(err error) int {
	var validationErr *checkout.ValidationError
	var stockErr *checkout.InsufficientStockError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.Is(err, cart.ErrInvalidItem):
		return http.StatusBadRequest
	case errors.Is(err, servicetoken.ErrInvalidToken),
		errors.Is(err, servicetoken.ErrExpiredToken),
		errors.Is(err, servicetoken.ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, checkout.ErrCartNotFound),
		errors.Is(err, abandonedcart.ErrCartNotFound),
		errors.Is(err, cartrecorder.ErrSessionNotFound),
		errors.Is(err, escrow.ErrRecordNotFound),
		errors.Is(err, eventlog.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.As(err, &stockErr),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, abandonedcart.ErrTerminal):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Fail logs err and writes its mapped status. Server errors are reported without detail.
func Fail(w http.ResponseWriter, msg string, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err)
		Error(w, status, http.StatusText(status))

		return
	}

	slog.Warn(msg, "status", status, "error", err)
	Error(w, status, err.Error())
}
