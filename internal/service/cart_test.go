package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devsanbid/quickbite/internal/cart"
	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/devsanbid/quickbite/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Mock CartStore (in-memory) ---

type memCartStore struct {
	carts map[uuid.UUID]*cart.Cart
}

func newMemCartStore() *memCartStore {
	return &memCartStore{carts: make(map[uuid.UUID]*cart.Cart)}
}

func (m *memCartStore) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]cart.Line(nil), c.Items...)
	return &cp, nil
}

func (m *memCartStore) Save(ctx context.Context, c *cart.Cart) error {
	m.carts[c.UserID] = c
	return nil
}

func (m *memCartStore) Delete(ctx context.Context, userID uuid.UUID) error {
	delete(m.carts, userID)
	return nil
}

// --- Mock CartCatalogStore ---

type mockCatalog struct {
	getRestaurantFn     func(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	getMenuItemFn       func(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	getDiscountByCodeFn func(ctx context.Context, arg database.GetDiscountByCodeParams) (database.Discount, error)
}

func (m *mockCatalog) GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error) {
	if m.getRestaurantFn != nil {
		return m.getRestaurantFn(ctx, id)
	}
	return database.Restaurant{}, pgx.ErrNoRows
}

func (m *mockCatalog) GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
	if m.getMenuItemFn != nil {
		return m.getMenuItemFn(ctx, arg)
	}
	return database.MenuItem{}, pgx.ErrNoRows
}

func (m *mockCatalog) GetDiscountByCode(ctx context.Context, arg database.GetDiscountByCodeParams) (database.Discount, error) {
	if m.getDiscountByCodeFn != nil {
		return m.getDiscountByCodeFn(ctx, arg)
	}
	return database.Discount{}, pgx.ErrNoRows
}

// --- Test data helpers ---

func testNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

func activeRestaurant(id uuid.UUID) database.Restaurant {
	return database.Restaurant{
		ID:             id,
		OwnerID:        uuid.New(),
		Name:           "Testaurant",
		IsActive:       true,
		DeliveryFee:    testNumeric("2.50"),
		MinOrderAmount: testNumeric("0.00"),
	}
}

func availableItem(id, restaurantID uuid.UUID, name, price string) database.MenuItem {
	return database.MenuItem{
		ID:           id,
		RestaurantID: restaurantID,
		Name:         name,
		Price:        testNumeric(price),
		IsAvailable:  true,
	}
}

func catalogWith(restaurant database.Restaurant, items ...database.MenuItem) *mockCatalog {
	return &mockCatalog{
		getRestaurantFn: func(ctx context.Context, id uuid.UUID) (database.Restaurant, error) {
			if id == restaurant.ID {
				return restaurant, nil
			}
			return database.Restaurant{}, pgx.ErrNoRows
		},
		getMenuItemFn: func(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
			for _, it := range items {
				if it.ID == arg.ID && it.RestaurantID == arg.RestaurantID {
					return it, nil
				}
			}
			return database.MenuItem{}, pgx.ErrNoRows
		},
	}
}

// --- Tests ---

func TestAddItemCreatesCartAndSnapshotsPrice(t *testing.T) {
	ctx := context.Background()
	restaurantID := uuid.New()
	itemID := uuid.New()
	restaurant := activeRestaurant(restaurantID)
	item := availableItem(itemID, restaurantID, "Burger", "8.50")

	store := newMemCartStore()
	svc := service.NewCartService(store, catalogWith(restaurant, item))

	c, err := svc.AddItem(ctx, uuid.New(), restaurantID, itemID, 2, "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(c.Items))
	}
	if c.Items[0].UnitPrice != "8.50" {
		t.Errorf("expected snapshot price 8.50, got %s", c.Items[0].UnitPrice)
	}
	if c.Items[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", c.Items[0].Quantity)
	}
}

func TestAddItemMergesSameLineAndKeepsDistinctCustomizations(t *testing.T) {
	ctx := context.Background()
	restaurantID := uuid.New()
	itemID := uuid.New()
	userID := uuid.New()
	restaurant := activeRestaurant(restaurantID)
	item := availableItem(itemID, restaurantID, "Burger", "8.50")

	svc := service.NewCartService(newMemCartStore(), catalogWith(restaurant, item))

	if _, err := svc.AddItem(ctx, userID, restaurantID, itemID, 1, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c, err := svc.AddItem(ctx, userID, restaurantID, itemID, 2, "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 3 {
		t.Fatalf("expected merged line with quantity 3, got %+v", c.Items)
	}

	// Different customizations stay on their own line.
	c, err = svc.AddItem(ctx, userID, restaurantID, itemID, 1, "no onions")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(c.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(c.Items))
	}
}

func TestAddItemRejectsSecondRestaurant(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	firstID := uuid.New()
	secondID := uuid.New()
	firstItem := availableItem(uuid.New(), firstID, "Burger", "8.50")
	secondItem := availableItem(uuid.New(), secondID, "Pizza", "11.00")

	restaurants := map[uuid.UUID]database.Restaurant{
		firstID:  activeRestaurant(firstID),
		secondID: activeRestaurant(secondID),
	}
	catalog := &mockCatalog{
		getRestaurantFn: func(ctx context.Context, id uuid.UUID) (database.Restaurant, error) {
			if r, ok := restaurants[id]; ok {
				return r, nil
			}
			return database.Restaurant{}, pgx.ErrNoRows
		},
		getMenuItemFn: func(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
			for _, it := range []database.MenuItem{firstItem, secondItem} {
				if it.ID == arg.ID && it.RestaurantID == arg.RestaurantID {
					return it, nil
				}
			}
			return database.MenuItem{}, pgx.ErrNoRows
		},
	}

	svc := service.NewCartService(newMemCartStore(), catalog)

	if _, err := svc.AddItem(ctx, userID, firstID, firstItem.ID, 1, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	_, err := svc.AddItem(ctx, userID, secondID, secondItem.ID, 1, "")
	if !errors.Is(err, service.ErrCartRestaurantMismatch) {
		t.Fatalf("expected ErrCartRestaurantMismatch, got %v", err)
	}
	if !errors.Is(err, service.ErrConflict) {
		t.Errorf("mismatch should be a conflict kind, got %v", err)
	}
}

func TestAddItemUnavailable(t *testing.T) {
	ctx := context.Background()
	restaurantID := uuid.New()
	item := availableItem(uuid.New(), restaurantID, "Burger", "8.50")
	item.IsAvailable = false

	svc := service.NewCartService(newMemCartStore(), catalogWith(activeRestaurant(restaurantID), item))

	_, err := svc.AddItem(ctx, uuid.New(), restaurantID, item.ID, 1, "")
	if !errors.Is(err, service.ErrMenuItemUnavailable) {
		t.Fatalf("expected ErrMenuItemUnavailable, got %v", err)
	}
}

func TestUpdateItemZeroRemovesAndEmptiesCart(t *testing.T) {
	ctx := context.Background()
	restaurantID := uuid.New()
	itemID := uuid.New()
	userID := uuid.New()
	item := availableItem(itemID, restaurantID, "Burger", "8.50")

	store := newMemCartStore()
	svc := service.NewCartService(store, catalogWith(activeRestaurant(restaurantID), item))

	if _, err := svc.AddItem(ctx, userID, restaurantID, itemID, 1, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c, err := svc.UpdateItem(ctx, userID, itemID, 0)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(c.Items))
	}
	if _, ok := store.carts[userID]; ok {
		t.Error("emptied cart should be deleted from the store")
	}
}

func TestUpdateItemNotInCart(t *testing.T) {
	svc := service.NewCartService(newMemCartStore(), &mockCatalog{})

	_, err := svc.UpdateItem(context.Background(), uuid.New(), uuid.New(), 2)
	if !errors.Is(err, service.ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestApplyCouponRequiresItemsAndExistingCode(t *testing.T) {
	ctx := context.Background()
	restaurantID := uuid.New()
	itemID := uuid.New()
	userID := uuid.New()
	item := availableItem(itemID, restaurantID, "Burger", "8.50")

	catalog := catalogWith(activeRestaurant(restaurantID), item)
	svc := service.NewCartService(newMemCartStore(), catalog)

	_, err := svc.ApplyCoupon(ctx, userID, "SAVE")
	if !errors.Is(err, service.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	if _, err := svc.AddItem(ctx, userID, restaurantID, itemID, 1, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	_, err = svc.ApplyCoupon(ctx, userID, "NOPE")
	if !errors.Is(err, service.ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}

	catalog.getDiscountByCodeFn = func(ctx context.Context, arg database.GetDiscountByCodeParams) (database.Discount, error) {
		if arg.Code == "SAVE" {
			return database.Discount{Code: "SAVE"}, nil
		}
		return database.Discount{}, pgx.ErrNoRows
	}
	c, err := svc.ApplyCoupon(ctx, userID, "SAVE")
	if err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}
	if c.CouponCode != "SAVE" {
		t.Errorf("expected coupon SAVE on cart, got %q", c.CouponCode)
	}
}

func TestGetQuoteAppliesEligibleCoupon(t *testing.T) {
	ctx := context.Background()
	restaurantID := uuid.New()
	itemID := uuid.New()
	userID := uuid.New()
	item := availableItem(itemID, restaurantID, "Burger", "10.00")

	now := time.Now()
	catalog := catalogWith(activeRestaurant(restaurantID), item)
	catalog.getDiscountByCodeFn = func(ctx context.Context, arg database.GetDiscountByCodeParams) (database.Discount, error) {
		return database.Discount{
			Code:       arg.Code,
			Type:       enum.DiscountTypePercentage,
			Value:      testNumeric("10.00"),
			UsageLimit: 100,
			StartsAt:   now.Add(-time.Hour),
			EndsAt:     now.Add(time.Hour),
			IsActive:   true,
		}, nil
	}

	svc := service.NewCartService(newMemCartStore(), catalog)
	if _, err := svc.AddItem(ctx, userID, restaurantID, itemID, 2, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.ApplyCoupon(ctx, userID, "SAVE"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}

	cq, err := svc.GetQuote(ctx, userID)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if got := cq.Quote.Subtotal.StringFixed(2); got != "20.00" {
		t.Errorf("subtotal = %s, want 20.00", got)
	}
	if got := cq.Quote.DiscountAmount.StringFixed(2); got != "2.00" {
		t.Errorf("discount = %s, want 2.00", got)
	}
	// 20.00 - 2.00 + 2.50 delivery
	if got := cq.Quote.Total.StringFixed(2); got != "20.50" {
		t.Errorf("total = %s, want 20.50", got)
	}
}

func TestGetQuoteDropsDeletedCoupon(t *testing.T) {
	ctx := context.Background()
	restaurantID := uuid.New()
	itemID := uuid.New()
	userID := uuid.New()
	item := availableItem(itemID, restaurantID, "Burger", "10.00")

	catalog := catalogWith(activeRestaurant(restaurantID), item)
	applied := false
	catalog.getDiscountByCodeFn = func(ctx context.Context, arg database.GetDiscountByCodeParams) (database.Discount, error) {
		if !applied {
			return database.Discount{Code: arg.Code}, nil
		}
		return database.Discount{}, pgx.ErrNoRows
	}

	svc := service.NewCartService(newMemCartStore(), catalog)
	if _, err := svc.AddItem(ctx, userID, restaurantID, itemID, 1, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.ApplyCoupon(ctx, userID, "GONE"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}
	applied = true

	cq, err := svc.GetQuote(ctx, userID)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if !cq.Quote.CouponDropped {
		t.Error("expected coupon to be dropped")
	}
	if !cq.Quote.DiscountAmount.IsZero() {
		t.Errorf("expected zero discount, got %s", cq.Quote.DiscountAmount)
	}
}

func TestGetQuoteEmptyCart(t *testing.T) {
	svc := service.NewCartService(newMemCartStore(), &mockCatalog{})

	cq, err := svc.GetQuote(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if len(cq.Cart.Items) != 0 {
		t.Error("expected empty cart")
	}
	if !cq.Quote.Total.IsZero() {
		t.Errorf("expected zero total, got %s", cq.Quote.Total)
	}
}
