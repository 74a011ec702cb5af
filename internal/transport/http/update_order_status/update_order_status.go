package updateorderstatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type service interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, to order.Status) (order.Order, error)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus handles a vendor moving an order along its lifecycle.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid order id")

		return
	}

	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding status update", "error", err)

		return
	}

	to, err := order.ParseStatus(req.Status)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "unknown order status")

		return
	}

	o, err := service.UpdateStatus(r.Context(), id, to)
	if err != nil {
		respond.Fail(w, "Error updating order status", err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}
