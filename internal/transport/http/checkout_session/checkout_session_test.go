package checkoutsession

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/feyxa/commerce/internal/dal/mocks"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/feyxa/commerce/internal/service/services/cartrecorder"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*chi.Mux, *cartrecorder.Manager, *mocks.CartStore) {
	t.Helper()

	manager := cartrecorder.MustNewManager(
		cartrecorder.WithAbandonedCartRepository(mocks.NewAbandonedCarts()),
		cartrecorder.WithCaptureDelay(time.Hour),
	)
	t.Cleanup(manager.Shutdown)
	carts := mocks.NewCartStore()

	router := chi.NewMux()
	router.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
		StartSession(w, r, manager, carts)
	})
	router.Patch("/sessions/{sessionID}/contact", func(w http.ResponseWriter, r *http.Request) {
		UpdateContact(w, r, manager)
	})
	router.Delete("/sessions/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		CloseSession(w, r, manager)
	})

	return router, manager, carts
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))

	return rec
}

func startSession(t *testing.T, router http.Handler, body string) uuid.UUID {
	t.Helper()

	rec := serve(router, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp startSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp.SessionID
}

func TestStartSession_FromStoredCart(t *testing.T) {
	router, manager, carts := newRouter(t)
	require.NoError(t, carts.Save(context.Background(), cart.Cart{ID: "c1", Items: []cart.Item{{
		ProductID: uuid.New(),
		Name:      "Wax print",
		Price:     5000,
		Currency:  currency.CurrencyXOF,
		Quantity:  1,
		StoreID:   uuid.New(),
	}}}))

	id := startSession(t, router, `{"cart_id":"c1"}`)

	session, err := manager.Get(id)
	require.NoError(t, err)
	assert.False(t, session.Captured())
}

func TestStartSession_RejectsInvalidItem(t *testing.T) {
	router, _, _ := newRouter(t)

	rec := serve(router, http.MethodPost, "/sessions", `{"items":[{"name":"no ids","quantity":1}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateContact(t *testing.T) {
	router, _, _ := newRouter(t)
	id := startSession(t, router, `{}`)

	rec := serve(router, http.MethodPatch, "/sessions/"+id.String()+"/contact", `{"customer_email":"a@b.co"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(router, http.MethodPatch, "/sessions/"+uuid.NewString()+"/contact", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodPatch, "/sessions/not-a-uuid/contact", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseSession(t *testing.T) {
	router, manager, _ := newRouter(t)
	id := startSession(t, router, `{}`)

	rec := serve(router, http.MethodDelete, "/sessions/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := manager.Get(id)
	assert.ErrorIs(t, err, cartrecorder.ErrSessionNotFound)

	rec = serve(router, http.MethodDelete, "/sessions/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
