package cartsvc

import (
	"context"
	"testing"

	"github.com/feyxa/commerce/internal/dal/mocks"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(storeID uuid.UUID, quantity, maxStock int) cart.Item {
	return cart.Item{
		ProductID: uuid.New(),
		Name:      "Pagne wax",
		Price:     5000,
		Currency:  currency.CurrencyXOF,
		Quantity:  quantity,
		StoreID:   storeID,
		StoreName: "Boutique A",
		MaxStock:  maxStock,
	}
}

func TestAddItem_MergesAndCapsAtStock(t *testing.T) {
	svc := MustNewCartService(WithCartStore(mocks.NewCartStore()))
	item := newItem(uuid.New(), 2, 3)

	_, err := svc.AddItem(context.Background(), "c1", item)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), "c1", item)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)

	stored, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Items[0].Quantity)
}

func TestAddItem_RejectsInvalidLine(t *testing.T) {
	svc := MustNewCartService(WithCartStore(mocks.NewCartStore()))

	tests := []struct {
		name   string
		mutate func(i *cart.Item)
	}{
		{name: "zero quantity", mutate: func(i *cart.Item) { i.Quantity = 0 }},
		{name: "missing store", mutate: func(i *cart.Item) { i.StoreID = uuid.Nil }},
		{name: "unknown currency", mutate: func(i *cart.Item) { i.Currency = "BTC" }},
		{name: "negative price", mutate: func(i *cart.Item) { i.Price = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newItem(uuid.New(), 1, 0)
			tt.mutate(&item)

			_, err := svc.AddItem(context.Background(), "c1", item)
			assert.ErrorIs(t, err, cart.ErrInvalidItem)
		})
	}
}

func TestSetQuantity(t *testing.T) {
	svc := MustNewCartService(WithCartStore(mocks.NewCartStore()))
	item := newItem(uuid.New(), 1, 0)
	_, err := svc.AddItem(context.Background(), "c1", item)
	require.NoError(t, err)

	c, err := svc.SetQuantity(context.Background(), "c1", item.ProductID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	_, err = svc.SetQuantity(context.Background(), "c1", uuid.New(), 1)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)

	c, err = svc.SetQuantity(context.Background(), "c1", item.ProductID, 0)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestRemoveItem(t *testing.T) {
	svc := MustNewCartService(WithCartStore(mocks.NewCartStore()))
	item := newItem(uuid.New(), 1, 0)
	_, err := svc.AddItem(context.Background(), "c1", item)
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), "c1", item.ProductID)
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), "c1", item.ProductID)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestClearStore_KeepsOtherStores(t *testing.T) {
	svc := MustNewCartService(WithCartStore(mocks.NewCartStore()))
	storeA, storeB := uuid.New(), uuid.New()
	_, err := svc.AddItem(context.Background(), "c1", newItem(storeA, 1, 0))
	require.NoError(t, err)
	kept := newItem(storeB, 2, 0)
	_, err = svc.AddItem(context.Background(), "c1", kept)
	require.NoError(t, err)

	require.NoError(t, svc.ClearStore(context.Background(), "c1", storeA))

	c, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, kept.ProductID, c.Items[0].ProductID)
}
