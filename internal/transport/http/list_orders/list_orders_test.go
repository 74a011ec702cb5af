package listorders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feyxa/commerce/internal/dal/mocks"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/services/ordersvc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, uuid.UUID, uuid.UUID, any) {}

func newService(store *mocks.Store) *ordersvc.OrderService {
	return ordersvc.MustNewOrderService(
		ordersvc.WithOrderRepository(store.OrderRepository()),
		ordersvc.WithOrderItemRepository(store.OrderItemRepository()),
		ordersvc.WithEvents(nopPublisher{}),
	)
}

func list(t *testing.T, svc service, query string) (int, []order.Order) {
	t.Helper()

	rec := httptest.NewRecorder()
	ListOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders?"+query, nil), svc)

	var orders []order.Order
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	}

	return rec.Code, orders
}

func TestListOrders_FiltersByStoreAndStatus(t *testing.T) {
	store := mocks.NewStore()
	storeA, storeB := uuid.New(), uuid.New()
	wanted := order.Order{ID: uuid.New(), StoreID: storeA, Status: order.StatusNew}
	store.PutOrder(wanted)
	store.PutOrder(order.Order{ID: uuid.New(), StoreID: storeA, Status: order.StatusShipped})
	store.PutOrder(order.Order{ID: uuid.New(), StoreID: storeB, Status: order.StatusNew})

	code, orders := list(t, newService(store), "store_id="+storeA.String()+"&status=new")

	require.Equal(t, http.StatusOK, code)
	require.Len(t, orders, 1)
	assert.Equal(t, wanted.ID, orders[0].ID)
	assert.NotNil(t, orders[0].Items)
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	ListOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil), newService(mocks.NewStore()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListOrders_BadQuery(t *testing.T) {
	svc := newService(mocks.NewStore())

	code, _ := list(t, svc, "store_id=nope")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = list(t, svc, "status=lost")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = list(t, svc, "limit=ten")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListOrders_NeverExposesTrackingToken(t *testing.T) {
	store := mocks.NewStore()
	store.PutOrder(order.Order{ID: uuid.New(), StoreID: uuid.New(), Status: order.StatusNew, TrackingToken: "secret-token"})

	rec := httptest.NewRecorder()
	ListOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil), newService(store))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "tracking_token")
	assert.NotContains(t, rec.Body.String(), "secret-token")
}
