// Package abandonedcarts serves the vendor dashboard's abandoned cart list and manual recovery.
package abandonedcarts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/feyxa/commerce/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

type service interface {
	List(ctx context.Context, filter abandonedcart.QueryModel) ([]abandonedcart.AbandonedCart, error)
	Recover(ctx context.Context, id uuid.UUID, withDiscount bool) (abandonedcart.Recovery, error)
}

type recoverRequest struct {
	WithDiscount bool `json:"with_discount"`
}

func ListAbandonedCarts(w http.ResponseWriter, r *http.Request, service service) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid store id")

		return
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	filter := abandonedcart.QueryModel{}
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request", "error", err)

		return
	}
	filter.StoreID = storeID

	for _, st := range filter.Statuses {
		switch st {
		case abandonedcart.StatusAbandoned, abandonedcart.StatusCompleted, abandonedcart.StatusRecovered:
		default:
			respond.Error(w, http.StatusBadRequest, "unknown abandoned cart status")

			return
		}
	}

	carts, err := service.List(r.Context(), filter)
	if err != nil {
		respond.Fail(w, "Error listing abandoned carts", err)

		return
	}

	respond.JSON(w, http.StatusOK, carts)
}

// RecoverAbandonedCart handles a vendor's manual follow-up. An empty body recovers without a
// discount.
func RecoverAbandonedCart(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid abandoned cart id")

		return
	}

	req := recoverRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding recovery request", "error", err)

		return
	}

	recovery, err := service.Recover(r.Context(), id, req.WithDiscount)
	if err != nil {
		respond.Fail(w, "Error recovering abandoned cart", err)

		return
	}

	respond.JSON(w, http.StatusOK, recovery)
}
