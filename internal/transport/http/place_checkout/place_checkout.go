package placecheckout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/checkout"
	"github.com/feyxa/commerce/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

// failedCheckoutResponse carries the legs that ran when a checkout stops part way.
type failedCheckoutResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Result *checkout.Result  `json:"result,omitempty"`
}

// PlaceCheckout handles the checkout request.
func PlaceCheckout(w http.ResponseWriter, r *http.Request, service service) {
	req := checkout.Request{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding request body for checkout", "error", err)

		return
	}

	result, err := service.Checkout(r.Context(), req)
	if err == nil {
		respond.JSON(w, http.StatusCreated, result)

		return
	}

	var validationErr *checkout.ValidationError
	var stockErr *checkout.InsufficientStockError

	switch {
	case errors.As(err, &validationErr):
		slog.Warn("Checkout rejected", "error", err)
		respond.JSON(w, http.StatusBadRequest, failedCheckoutResponse{
			Error:  validationErr.Message,
			Fields: validationErr.Fields,
		})
	case errors.As(err, &stockErr):
		respond.JSON(w, http.StatusConflict, failedCheckoutResponse{
			Error:  stockErr.Error(),
			Result: legsOf(result),
		})
	case errors.Is(err, checkout.ErrPersistence):
		slog.Error("Error performing checkout", "error", err)
		respond.JSON(w, http.StatusInternalServerError, failedCheckoutResponse{
			Error:  checkout.ErrPersistence.Error(),
			Result: legsOf(result),
		})
	default:
		respond.Fail(w, "Error performing checkout", err)
	}
}

func legsOf(result checkout.Result) *checkout.Result {
	if len(result.Legs) == 0 {
		return nil
	}

	return &result
}
