// Package trackorder serves the buyer's order page, addressed by tracking token.
package trackorder

import (
	"context"
	"net/http"

	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/transport/http/respond"
)

type service interface {
	Track(ctx context.Context, token string) (order.Order, error)
	ConfirmReceipt(ctx context.Context, token string) (order.Order, error)
}

func TrackOrder(w http.ResponseWriter, r *http.Request, service service) {
	o, err := service.Track(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		respond.Fail(w, "Error tracking order", err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}

// ConfirmReceipt marks a shipped order delivered on the buyer's word.
func ConfirmReceipt(w http.ResponseWriter, r *http.Request, service service) {
	o, err := service.ConfirmReceipt(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		respond.Fail(w, "Error confirming order receipt", err)

		return
	}

	respond.JSON(w, http.StatusOK, o)
}
