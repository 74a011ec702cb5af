package redisrepo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*CartStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCartStore(client, time.Hour), mr
}

func TestCartStore_GetMissingReturnsEmptyCart(t *testing.T) {
	store, _ := setupStore(t)

	c, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", c.ID)
	assert.Empty(t, c.Items)
}

func TestCartStore_SaveThenGet(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	item := cart.Item{
		ProductID: uuid.New(),
		Name:      "Wax print",
		Price:     5000,
		Currency:  currency.CurrencyXOF,
		Quantity:  2,
		StoreID:   uuid.New(),
	}
	require.NoError(t, store.Save(ctx, cart.Cart{ID: "c1", Items: []cart.Item{item}}))

	assert.True(t, mr.Exists("cart:c1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:c1"))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, item.ProductID, got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestCartStore_InvalidJSON(t *testing.T) {
	store, mr := setupStore(t)
	require.NoError(t, mr.Set("cart:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestCartStore_Delete(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, cart.Cart{ID: "c2"}))
	require.NoError(t, store.Delete(ctx, "c2"))
	assert.False(t, mr.Exists("cart:c2"))
}
