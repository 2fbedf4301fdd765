package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devsanbid/quickbite/internal/cart"
	"github.com/devsanbid/quickbite/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CartStore persists carts between requests. Satisfied by *cart.Store.
type CartStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// CartCatalogStore defines the DB methods cart operations need.
// Satisfied by *database.Queries; narrow interface for testability.
type CartCatalogStore interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	GetDiscountByCode(ctx context.Context, arg database.GetDiscountByCodeParams) (database.Discount, error)
}

// UserLocks serializes operations on a single user's cart. The cart blob in
// Redis is read-modify-write, so everything that reads and writes the same
// cart takes the user's lock first. Checkout shares these locks so a
// concurrent mutation cannot land between its cart read and the
// post-commit delete.
type UserLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewUserLocks creates an empty lock set.
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the user's lock and returns its unlock function.
func (l *UserLocks) Lock(userID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// CartService handles cart mutations and quoting.
type CartService struct {
	carts CartStore
	store CartCatalogStore
	locks *UserLocks
}

// NewCartService creates a new CartService.
func NewCartService(carts CartStore, store CartCatalogStore) *CartService {
	return &CartService{
		carts: carts,
		store: store,
		locks: NewUserLocks(),
	}
}

// Locks returns the per-user cart locks so checkout can serialize with
// cart mutations.
func (s *CartService) Locks() *UserLocks {
	return s.locks
}

func (s *CartService) lockUser(userID uuid.UUID) func() {
	return s.locks.Lock(userID)
}

// CartQuote is a cart together with its computed price.
type CartQuote struct {
	Cart  *cart.Cart
	Quote Quote
}

// AddItem puts an item into the user's cart, creating the cart if needed.
// A cart only holds items from one restaurant; adding from a second
// restaurant is rejected until the cart is cleared.
func (s *CartService) AddItem(ctx context.Context, userID, restaurantID, menuItemID uuid.UUID, quantity int32, customizations string) (*cart.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	restaurant, err := s.store.GetRestaurant(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if !restaurant.IsActive {
		return nil, ErrRestaurantInactive
	}

	item, err := s.store.GetMenuItem(ctx, database.GetMenuItemParams{
		ID:           menuItemID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	if !item.IsAvailable {
		return nil, ErrMenuItemUnavailable
	}

	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		c = &cart.Cart{UserID: userID, RestaurantID: restaurantID}
	} else if c.RestaurantID != restaurantID {
		return nil, ErrCartRestaurantMismatch
	}

	// Same item with the same customizations merges into one line.
	merged := false
	for i, l := range c.Items {
		if l.MenuItemID == menuItemID && l.Customizations == customizations {
			c.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, cart.Line{
			MenuItemID:     menuItemID,
			Name:           item.Name,
			Quantity:       quantity,
			UnitPrice:      numericToDecimal(item.Price).StringFixed(2),
			Customizations: customizations,
		})
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateItem sets the quantity of a cart line. Quantity zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, menuItemID uuid.UUID, quantity int32) (*cart.Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCartItemNotFound
	}

	idx := -1
	for i, l := range c.Items {
		if l.MenuItemID == menuItemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrCartItemNotFound
	}

	if quantity == 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	} else {
		c.Items[idx].Quantity = quantity
	}

	if len(c.Items) == 0 {
		if err := s.carts.Delete(ctx, userID); err != nil {
			return nil, err
		}
		return &cart.Cart{UserID: userID}, nil
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem deletes a cart line.
func (s *CartService) RemoveItem(ctx context.Context, userID, menuItemID uuid.UUID) (*cart.Cart, error) {
	return s.UpdateItem(ctx, userID, menuItemID, 0)
}

// Clear drops the whole cart.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	unlock := s.lockUser(userID)
	defer unlock()
	return s.carts.Delete(ctx, userID)
}

// ApplyCoupon attaches a coupon code to the cart. The code must exist for
// the cart's restaurant; eligibility (window, usage, minimum) is evaluated
// at quote time so an expiring coupon degrades to a dropped one rather
// than wedging the cart.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*cart.Cart, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if _, err := s.store.GetDiscountByCode(ctx, database.GetDiscountByCodeParams{
		RestaurantID: c.RestaurantID,
		Code:         code,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get discount: %w", err)
	}

	c.CouponCode = code
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveCoupon detaches any coupon from the cart.
func (s *CartService) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &cart.Cart{UserID: userID}, nil
	}
	c.CouponCode = ""
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetQuote returns the cart and its current price. An empty cart quotes
// to all zeros rather than erroring.
func (s *CartService) GetQuote(ctx context.Context, userID uuid.UUID) (*CartQuote, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return &CartQuote{Cart: &cart.Cart{UserID: userID}}, nil
	}
	quote, err := s.quoteCart(ctx, c, time.Now())
	if err != nil {
		return nil, err
	}
	return &CartQuote{Cart: c, Quote: quote}, nil
}

// quoteCart prices a non-empty cart against the restaurant's delivery fee
// and the attached coupon, if any.
func (s *CartService) quoteCart(ctx context.Context, c *cart.Cart, now time.Time) (Quote, error) {
	restaurant, err := s.store.GetRestaurant(ctx, c.RestaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, ErrRestaurantNotFound
		}
		return Quote{}, fmt.Errorf("get restaurant: %w", err)
	}

	lines := make([]QuoteLine, len(c.Items))
	for i, l := range c.Items {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return Quote{}, fmt.Errorf("cart line %s: bad price %q", l.MenuItemID, l.UnitPrice)
		}
		lines[i] = QuoteLine{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  price,
		}
	}

	var coupon *CouponRule
	if c.CouponCode != "" {
		d, err := s.store.GetDiscountByCode(ctx, database.GetDiscountByCodeParams{
			RestaurantID: c.RestaurantID,
			Code:         c.CouponCode,
		})
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// Deleted since it was applied; quote without it.
			coupon = &CouponRule{Code: c.CouponCode}
		case err != nil:
			return Quote{}, fmt.Errorf("get discount: %w", err)
		default:
			coupon = couponRuleFromDiscount(d)
		}
	}

	return ComputeQuote(lines, coupon, numericToDecimal(restaurant.DeliveryFee), now), nil
}

func couponRuleFromDiscount(d database.Discount) *CouponRule {
	return &CouponRule{
		Code:              d.Code,
		Type:              d.Type,
		Value:             numericToDecimal(d.Value),
		MinOrderAmount:    numericToDecimal(d.MinOrderAmount),
		MaxDiscountAmount: numericToDecimal(d.MaxDiscountAmount),
		UsageLimit:        d.UsageLimit,
		UsedCount:         d.UsedCount,
		StartsAt:          d.StartsAt,
		EndsAt:            d.EndsAt,
		IsActive:          d.IsActive,
	}
}
