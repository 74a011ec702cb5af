package cartitems

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/feyxa/commerce/internal/dal/mocks"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/services/cartsvc"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *chi.Mux {
	svc := cartsvc.MustNewCartService(cartsvc.WithCartStore(mocks.NewCartStore()))

	router := chi.NewMux()
	router.Route("/carts/{cartID}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) { GetCart(w, r, svc) })
		r.Post("/items", func(w http.ResponseWriter, r *http.Request) { AddItem(w, r, svc) })
		r.Patch("/items/{productID}", func(w http.ResponseWriter, r *http.Request) { SetQuantity(w, r, svc) })
		r.Delete("/items/{productID}", func(w http.ResponseWriter, r *http.Request) { RemoveItem(w, r, svc) })
	})

	return router
}

func serve(t *testing.T, router http.Handler, method, path, body string) (int, cart.Cart) {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	var c cart.Cart
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	}

	return rec.Code, c
}

func itemJSON(productID, storeID uuid.UUID, quantity int) string {
	return fmt.Sprintf(
		`{"product_id":%q,"name":"Kente scarf","price":12000,"currency":"XOF","quantity":%d,"store_id":%q,"max_stock":5}`,
		productID, quantity, storeID,
	)
}

func TestCartLifecycle(t *testing.T) {
	router := newRouter()
	productID, storeID := uuid.New(), uuid.New()

	code, c := serve(t, router, http.MethodGet, "/carts/c1/", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, c.Items)

	code, c = serve(t, router, http.MethodPost, "/carts/c1/items", itemJSON(productID, storeID, 2))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)

	code, c = serve(t, router, http.MethodPost, "/carts/c1/items", itemJSON(productID, storeID, 4))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, c.Items[0].Quantity)

	code, c = serve(t, router, http.MethodPatch, "/carts/c1/items/"+productID.String(), `{"quantity":3}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, c.Items[0].Quantity)

	code, c = serve(t, router, http.MethodDelete, "/carts/c1/items/"+productID.String(), "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, c.Items)
}

func TestCartErrors(t *testing.T) {
	router := newRouter()

	code, _ := serve(t, router, http.MethodPost, "/carts/c1/items", `{"name":"missing ids","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serve(t, router, http.MethodPatch, "/carts/c1/items/"+uuid.NewString(), `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = serve(t, router, http.MethodDelete, "/carts/c1/items/bogus", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
