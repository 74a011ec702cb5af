// Package cartitems exposes the server-side cart under /api/carts/{cartID}.
package cartitems

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type service interface {
	Get(ctx context.Context, cartID string) (cart.Cart, error)
	AddItem(ctx context.Context, cartID string, item cart.Item) (cart.Cart, error)
	SetQuantity(ctx context.Context, cartID string, productID uuid.UUID, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, cartID string, productID uuid.UUID) (cart.Cart, error)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func GetCart(w http.ResponseWriter, r *http.Request, service service) {
	c, err := service.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		respond.Fail(w, "Error getting cart", err)

		return
	}

	respond.JSON(w, http.StatusOK, c)
}

func AddItem(w http.ResponseWriter, r *http.Request, service service) {
	item := cart.Item{}
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding cart item", "error", err)

		return
	}

	c, err := service.AddItem(r.Context(), chi.URLParam(r, "cartID"), item)
	if err != nil {
		respond.Fail(w, "Error adding cart item", err)

		return
	}

	respond.JSON(w, http.StatusOK, c)
}

// SetQuantity updates one line. A quantity of zero or less removes it.
func SetQuantity(w http.ResponseWriter, r *http.Request, service service) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	req := setQuantityRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding quantity update", "error", err)

		return
	}

	c, err := service.SetQuantity(r.Context(), chi.URLParam(r, "cartID"), productID, req.Quantity)
	if err != nil {
		respond.Fail(w, "Error updating cart item", err)

		return
	}

	respond.JSON(w, http.StatusOK, c)
}

func RemoveItem(w http.ResponseWriter, r *http.Request, service service) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	c, err := service.RemoveItem(r.Context(), chi.URLParam(r, "cartID"), productID)
	if err != nil {
		respond.Fail(w, "Error removing cart item", err)

		return
	}

	respond.JSON(w, http.StatusOK, c)
}

func parseProductID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid product id")

		return uuid.Nil, false
	}

	return id, true
}
