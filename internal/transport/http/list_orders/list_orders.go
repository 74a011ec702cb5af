package listorders

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/transport/http/respond"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

type service interface {
	List(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

type queryOrdersRequest struct {
	IDs      []uuid.UUID `schema:"id,omitempty"`
	StoreIDs []uuid.UUID `schema:"store_id,omitempty"`
	Statuses []string    `schema:"status,omitempty"`
	Limit    int         `schema:"limit,omitempty"`
	Offset   int         `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel() (order.QueryOrdersModel, error) {
	statuses := make([]order.Status, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		st, err := order.ParseStatus(s)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		statuses = append(statuses, st)
	}

	return order.QueryOrdersModel{
		IDs:      q.IDs,
		StoreIDs: q.StoreIDs,
		Statuses: statuses,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}, nil
}

func newDecoder() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.RegisterConverter(uuid.UUID{}, func(s string) reflect.Value {
		id, err := uuid.Parse(s)
		if err != nil {
			return reflect.Value{}
		}

		return reflect.ValueOf(id)
	})

	return decoder
}

func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := newDecoder().Decode(query, r.URL.Query()); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request", "error", err)

		return
	}

	filter, err := query.ToModel()
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "unknown order status")

		return
	}

	orders, err := service.List(r.Context(), filter)
	if err != nil {
		respond.Fail(w, "Error getting orders", err)

		return
	}

	respond.JSON(w, http.StatusOK, orders)
}
