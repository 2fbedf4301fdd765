package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TTL keeps abandoned carts from accumulating forever.
const cartTTL = 7 * 24 * time.Hour

// Line is a single item in a cart. UnitPrice is the price snapshot taken
// when the item was added; quotes reprice from it.
type Line struct {
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	Name           string    `json:"name"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      string    `json:"unit_price"`
	Customizations string    `json:"customizations,omitempty"`
}

// Cart is the per-user draft order. A cart only ever holds items from a
// single restaurant.
type Cart struct {
	UserID       uuid.UUID `json:"user_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Items        []Line    `json:"items"`
	CouponCode   string    `json:"coupon_code,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists carts in Redis as JSON blobs keyed by user.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Store on the given Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func cartKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

// Get returns the user's cart, or nil when none exists.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	data, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &c, nil
}

// Save writes the cart and refreshes its TTL.
func (s *Store) Save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, cartKey(c.UserID), data, cartTTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the user's cart. Deleting a missing cart is not an error.
func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
