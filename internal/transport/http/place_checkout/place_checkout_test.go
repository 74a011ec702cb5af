package placecheckout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/feyxa/commerce/internal/service/models/checkout"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	result checkout.Result
	err    error
	got    checkout.Request
}

func (s *stubService) Checkout(_ context.Context, req checkout.Request) (checkout.Result, error) {
	s.got = req

	return s.result, s.err
}

func do(t *testing.T, svc *stubService, body string) (*httptest.ResponseRecorder, failedCheckoutResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	PlaceCheckout(rec, req, svc)

	var resp failedCheckoutResponse
	if rec.Code != http.StatusCreated {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}

	return rec, resp
}

func TestPlaceCheckout_Created(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{result: checkout.Result{
		Legs: []checkout.Leg{{
			Status:        checkout.LegCreated,
			OrderID:       &orderID,
			OrderNumber:   "FX-1-ABC",
			TrackingToken: "tok-1",
		}},
	}}

	rec, _ := do(t, svc, `{"payment_method":"cod","cart_id":"c1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "c1", svc.got.CartID)

	var result checkout.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Legs, 1)
	assert.Equal(t, "FX-1-ABC", result.Legs[0].OrderNumber)
	assert.Equal(t, "tok-1", result.Legs[0].TrackingToken)
}

func TestPlaceCheckout_BadBody(t *testing.T) {
	rec, resp := do(t, &stubService{}, `{`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", resp.Error)
}

func TestPlaceCheckout_Validation(t *testing.T) {
	svc := &stubService{err: &checkout.ValidationError{
		Message: "please check your contact details",
		Fields:  map[string]string{"customer.phone": "is required"},
	}}

	rec, resp := do(t, svc, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "please check your contact details", resp.Error)
	assert.Equal(t, "is required", resp.Fields["customer.phone"])
	assert.Nil(t, resp.Result)
}

func TestPlaceCheckout_InsufficientStockKeepsCommittedLegs(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{
		result: checkout.Result{Legs: []checkout.Leg{
			{Status: checkout.LegCreated, OrderID: &orderID},
			{Status: checkout.LegInsufficientStock},
		}},
		err: &checkout.InsufficientStockError{ProductName: "Shea butter"},
	}

	rec, resp := do(t, svc, `{}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient stock for Shea butter", resp.Error)
	require.NotNil(t, resp.Result)
	assert.Equal(t, checkout.LegCreated, resp.Result.Legs[0].Status)
	assert.Equal(t, checkout.LegInsufficientStock, resp.Result.Legs[1].Status)
}

func TestPlaceCheckout_PersistenceHidesCause(t *testing.T) {
	svc := &stubService{
		result: checkout.Result{Legs: []checkout.Leg{{Status: checkout.LegFailed}}},
		err:    fmt.Errorf("%w: %w", checkout.ErrPersistence, errors.New("connection reset")),
	}

	rec, resp := do(t, svc, `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, checkout.ErrPersistence.Error(), resp.Error)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestPlaceCheckout_CartNotFound(t *testing.T) {
	rec, _ := do(t, &stubService{err: checkout.ErrCartNotFound}, `{}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
