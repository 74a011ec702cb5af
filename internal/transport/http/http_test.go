package httptransport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/services/dispatchsvc"
	"github.com/feyxa/commerce/pkg/servicetoken"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	calls int
}

func (p *stubProcessor) Process(context.Context, eventlog.Message) (eventlog.Outcome, error) {
	p.calls++

	return eventlog.OutcomeProcessed, nil
}

type stubSweeper struct{}

func (stubSweeper) Sweep(context.Context) (dispatchsvc.SweepReport, error) {
	return dispatchsvc.SweepReport{}, nil
}

type stubOrders struct {
	listCalls  int
	trackCalls int
}

func (s *stubOrders) List(context.Context, order.QueryOrdersModel) ([]order.Order, error) {
	s.listCalls++

	return []order.Order{{ID: uuid.New(), Status: order.StatusNew, TrackingToken: "secret-token"}}, nil
}

func (s *stubOrders) Track(context.Context, string) (order.Order, error) {
	s.trackCalls++

	return order.Order{}, order.ErrOrderNotFound
}

func (s *stubOrders) ConfirmReceipt(context.Context, string) (order.Order, error) {
	return order.Order{}, order.ErrOrderNotFound
}

func (s *stubOrders) UpdateStatus(context.Context, uuid.UUID, order.Status) (order.Order, error) {
	return order.Order{}, order.ErrOrderNotFound
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func newTransport(services Services) http.Handler {
	transport := NewHTTPTransport(services)
	transport.RegisterRoutes()

	return transport.Handler()
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTransport(Services{Database: stubPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newTransport(Services{Database: stubPinger{err: errors.New("down")}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProcessEventRequiresServiceToken(t *testing.T) {
	signer := servicetoken.NewSigner("secret", "commerce", time.Minute)
	processor := &stubProcessor{}
	handler := newTransport(Services{
		Events:      processor,
		Sweeper:     stubSweeper{},
		ServiceAuth: signer.Middleware,
	})
	body := `{"event_id":"` + uuid.NewString() + `","event_type":"order.created"}`

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process-event", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, processor.calls)

	token, err := signer.Sign()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/process-event", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, processor.calls)

	forged, err := servicetoken.NewSigner("other", "commerce", time.Minute).Sign()
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/internal/events/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardRoutesRequireServiceToken(t *testing.T) {
	signer := servicetoken.NewSigner("secret", "commerce", time.Minute)
	orders := &stubOrders{}
	handler := newTransport(Services{Orders: orders, ServiceAuth: signer.Middleware})

	guarded := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/orders"},
		{http.MethodPatch, "/api/orders/" + uuid.NewString() + "/status"},
		{http.MethodGet, "/api/stores/" + uuid.NewString() + "/abandoned-carts"},
		{http.MethodPost, "/api/abandoned-carts/" + uuid.NewString() + "/recover"},
	}
	for _, route := range guarded {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(route.method, route.target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.target)
	}
	assert.Zero(t, orders.listCalls)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/track?token=abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, orders.trackCalls)

	token, err := signer.Sign()
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, orders.listCalls)
	assert.NotContains(t, rec.Body.String(), "tracking_token")
	assert.NotContains(t, rec.Body.String(), "secret-token")
}
