package checkoutsession

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/services/cartrecorder"
	"github.com/feyxa/commerce/internal/transport/http/respond"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type service interface {
	Start(items []cart.Item, contact abandonedcart.Contact) *cartrecorder.Session
	Get(id uuid.UUID) (*cartrecorder.Session, error)
}

type cartService interface {
	Get(ctx context.Context, cartID string) (cart.Cart, error)
}

// startSessionRequest opens a session for a stored cart or for lines the client holds.
type startSessionRequest struct {
	CartID  string                `json:"cart_id,omitempty"`
	Items   []cart.Item           `json:"items,omitempty"`
	Contact abandonedcart.Contact `json:"contact"`
}

type startSessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
}

// StartSession handles the opening of the checkout page.
func StartSession(w http.ResponseWriter, r *http.Request, service service, carts cartService) {
	req := startSessionRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding request body for checkout session", "error", err)

		return
	}

	items := req.Items
	if req.CartID != "" {
		c, err := carts.Get(r.Context(), req.CartID)
		if err != nil {
			respond.Fail(w, "Error loading cart for checkout session", err)

			return
		}
		items = c.Items
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			respond.Fail(w, "Error validating checkout session items", err)

			return
		}
	}

	session := service.Start(items, req.Contact)
	respond.JSON(w, http.StatusCreated, startSessionResponse{SessionID: session.ID})
}

// UpdateContact handles a contact form change on the checkout page.
func UpdateContact(w http.ResponseWriter, r *http.Request, service service) {
	session, ok := lookup(w, r, service)
	if !ok {
		return
	}

	contact := abandonedcart.Contact{}
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		slog.Error("Error decoding contact update", "error", err)

		return
	}

	session.UpdateContact(contact)
	w.WriteHeader(http.StatusNoContent)
}

// CloseSession handles the shopper leaving the checkout page.
func CloseSession(w http.ResponseWriter, r *http.Request, service service) {
	session, ok := lookup(w, r, service)
	if !ok {
		return
	}

	session.Close()
	w.WriteHeader(http.StatusNoContent)
}

func lookup(w http.ResponseWriter, r *http.Request, service service) (*cartrecorder.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid session id")

		return nil, false
	}

	session, err := service.Get(id)
	if err != nil {
		respond.Fail(w, "Error looking up checkout session", err)

		return nil, false
	}

	return session, true
}
