package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// MustNewClient connects to the redis configured under redis.*.
func MustNewClient() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	return client
}

// CartStore keeps carts as JSON documents with a sliding TTL.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *CartStore) Get(ctx context.Context, cartID string) (cart.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Cart{ID: cartID, Items: []cart.Item{}}, nil
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("redis get failed: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return cart.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	c.ID = cartID

	return c, nil
}

func (s *CartStore) Save(ctx context.Context, c cart.Cart) error {
	c.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(c.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (s *CartStore) Delete(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, cartKey(cartID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cartKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}
