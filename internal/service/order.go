package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devsanbid/quickbite/internal/cart"
	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// One reward point per this much spent, floored, granted on delivery.
var rewardPointUnit = decimal.NewFromInt(10)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int64, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	GetDiscountByCode(ctx context.Context, arg database.GetDiscountByCodeParams) (database.Discount, error)
	IncrementDiscountUsage(ctx context.Context, id uuid.UUID) (database.Discount, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	InsertStatusHistory(ctx context.Context, arg database.InsertStatusHistoryParams) (database.OrderStatusHistory, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	AddRewardPoints(ctx context.Context, arg database.AddRewardPointsParams) (database.User, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListMenuItemsByIDs(ctx context.Context, arg database.ListMenuItemsByIDsParams) ([]database.MenuItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Notifier delivers user-facing notifications. Satisfied by *NotificationService.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, ntype string)
}

// EventPublisher emits order lifecycle events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Actor identifies who is performing an order operation.
type Actor struct {
	UserID       uuid.UUID
	Role         string
	RestaurantID uuid.UUID
}

func (a Actor) isAdmin() bool {
	return a.Role == enum.RoleAdmin || a.Role == enum.RoleSuperAdmin
}

// OrderEvent is the payload published on order lifecycle changes.
type OrderEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	UserID       uuid.UUID `json:"user_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Status       string    `json:"status"`
	TotalAmount  string    `json:"total_amount"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// CheckoutResult is the placed order with its items and the quote it was
// priced from.
type CheckoutResult struct {
	Order database.Order
	Items []database.OrderItem
	Quote Quote
}

// OrderService handles checkout and the order state machine.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	carts    CartStore
	locks    *UserLocks
	notifier Notifier
	events   EventPublisher
}

// NewOrderService creates a new OrderService. store is the pool-backed
// Queries used for reads outside transactions. locks is shared with the
// cart service so checkout and cart mutations serialize per user.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, carts CartStore, locks *UserLocks, notifier Notifier, events EventPublisher) *OrderService {
	return &OrderService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		carts:    carts,
		locks:    locks,
		notifier: notifier,
		events:   events,
	}
}

// Checkout turns the user's cart into an order atomically. The coupon's
// used_count is bumped inside the same transaction, so a coupon can never
// be honored past its usage limit. The user's cart lock is held from the
// cart read to the post-commit delete, so a concurrent cart mutation
// cannot slip in and be wiped.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID) (*CheckoutResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	now := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	restaurant, err := store.GetRestaurant(ctx, c.RestaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if !restaurant.IsActive {
		return nil, ErrRestaurantInactive
	}
	if !withinOperatingHours(restaurant.OpensAt, restaurant.ClosesAt, now) {
		return nil, ErrRestaurantClosed
	}

	// Price the cart.
	lines := make([]QuoteLine, len(c.Items))
	for i, l := range c.Items {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("cart line %s: bad price %q", l.MenuItemID, l.UnitPrice)
		}
		lines[i] = QuoteLine{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  price,
		}
	}

	var coupon *CouponRule
	var discountID uuid.UUID
	if c.CouponCode != "" {
		d, err := store.GetDiscountByCode(ctx, database.GetDiscountByCodeParams{
			RestaurantID: c.RestaurantID,
			Code:         c.CouponCode,
		})
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			coupon = &CouponRule{Code: c.CouponCode}
		case err != nil:
			return nil, fmt.Errorf("get discount: %w", err)
		default:
			coupon = couponRuleFromDiscount(d)
			discountID = d.ID
		}
	}

	quote := ComputeQuote(lines, coupon, numericToDecimal(restaurant.DeliveryFee), now)

	if quote.Subtotal.LessThan(numericToDecimal(restaurant.MinOrderAmount)) {
		return nil, ErrBelowMinimumOrder
	}

	if coupon != nil && !quote.CouponDropped {
		if _, err := store.IncrementDiscountUsage(ctx, discountID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCouponExhausted
			}
			return nil, fmt.Errorf("increment discount usage: %w", err)
		}
	}

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("QB-%06d", nextNum)

	couponCode := pgtype.Text{}
	if coupon != nil && !quote.CouponDropped {
		couponCode = pgtype.Text{String: coupon.Code, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:    orderNumber,
		UserID:         userID,
		RestaurantID:   c.RestaurantID,
		Status:         enum.OrderStatusPending,
		CouponCode:     couponCode,
		Subtotal:       decimalToNumeric(quote.Subtotal),
		DiscountAmount: decimalToNumeric(quote.DiscountAmount),
		DeliveryFee:    decimalToNumeric(quote.DeliveryFee),
		TotalAmount:    decimalToNumeric(quote.Total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(c.Items))
	for _, l := range c.Items {
		customizations := pgtype.Text{}
		if l.Customizations != "" {
			customizations = pgtype.Text{String: l.Customizations, Valid: true}
		}
		price, _ := decimal.NewFromString(l.UnitPrice)
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:        order.ID,
			MenuItemID:     l.MenuItemID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPrice:      decimalToNumeric(price),
			Customizations: customizations,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if _, err := store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID: order.ID,
		Status:  enum.OrderStatusPending,
		ActorID: pgtype.UUID{Bytes: userID, Valid: true},
	}); err != nil {
		return nil, fmt.Errorf("insert status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("clear cart after checkout")
	}

	s.notifier.Notify(ctx, userID, "Order placed",
		fmt.Sprintf("Your order %s has been placed.", order.OrderNumber),
		enum.NotificationOrderPlaced)
	s.notifier.Notify(ctx, restaurant.OwnerID, "New order",
		fmt.Sprintf("Order %s is waiting for confirmation.", order.OrderNumber),
		enum.NotificationOrderPlaced)
	s.publish(ctx, order)

	return &CheckoutResult{Order: order, Items: items, Quote: quote}, nil
}

// Transition moves an order to a new status on behalf of restaurant staff
// or an admin. The update is a compare-and-set on the status read here, so
// two concurrent transitions cannot both win.
func (s *OrderService) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, newStatus, note string) (database.Order, error) {
	if !enum.ValidOrderStatus(newStatus) {
		return database.Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	switch {
	case actor.isAdmin():
	case actor.Role == enum.RoleRestaurant && actor.RestaurantID == current.RestaurantID:
	default:
		return database.Order{}, fmt.Errorf("%w: not allowed to manage this order", ErrForbidden)
	}

	if err := ValidateTransition(current.Status, newStatus); err != nil {
		return database.Order{}, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             orderID,
		Status:         newStatus,
		ExpectedStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusChanged
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	historyNote := pgtype.Text{}
	if note != "" {
		historyNote = pgtype.Text{String: note, Valid: true}
	}
	if _, err := store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID: orderID,
		Status:  newStatus,
		Note:    historyNote,
		ActorID: pgtype.UUID{Bytes: actor.UserID, Valid: true},
	}); err != nil {
		return database.Order{}, fmt.Errorf("insert status history: %w", err)
	}

	if newStatus == enum.OrderStatusDelivered {
		points := int32(numericToDecimal(updated.TotalAmount).Div(rewardPointUnit).IntPart())
		if points > 0 {
			if _, err := store.AddRewardPoints(ctx, database.AddRewardPointsParams{
				ID:     updated.UserID,
				Points: points,
			}); err != nil {
				return database.Order{}, fmt.Errorf("add reward points: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifyStatus(ctx, updated)
	s.publish(ctx, updated)
	return updated, nil
}

// Cancel cancels an order. Customers may cancel their own orders while
// still pending or confirmed; admins may cancel any non-terminal order but
// must give a reason. Restaurant staff cancel through Transition.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (database.Order, error) {
	if actor.isAdmin() && reason == "" {
		return database.Order{}, ErrCancelReasonRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	switch {
	case actor.isAdmin():
		if IsTerminalStatus(current.Status) {
			return database.Order{}, fmt.Errorf("%w: cannot transition from %s", ErrInvalidTransition, current.Status)
		}
	case current.UserID == actor.UserID:
		if current.Status != enum.OrderStatusPending && current.Status != enum.OrderStatusConfirmed {
			return database.Order{}, ErrCancelWindowClosed
		}
	default:
		return database.Order{}, ErrNotOrderOwner
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             orderID,
		Status:         enum.OrderStatusCancelled,
		ExpectedStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusChanged
		}
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	historyNote := pgtype.Text{}
	if reason != "" {
		historyNote = pgtype.Text{String: reason, Valid: true}
	}
	if _, err := store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID: orderID,
		Status:  enum.OrderStatusCancelled,
		Note:    historyNote,
		ActorID: pgtype.UUID{Bytes: actor.UserID, Valid: true},
	}); err != nil {
		return database.Order{}, fmt.Errorf("insert status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifyStatus(ctx, updated)
	s.publish(ctx, updated)
	return updated, nil
}

// ReorderResult is the rebuilt cart plus the names of any items from the
// original order that no longer exist or are unavailable.
type ReorderResult struct {
	Cart    *cart.Cart
	Dropped []string
}

// Reorder rebuilds the user's cart from a past order at current menu
// prices. Items that vanished from the menu or are unavailable are
// dropped and reported, not errored on. The rebuilt cart replaces the
// current one, so the write takes the user's cart lock.
func (s *OrderService) Reorder(ctx context.Context, userID, orderID uuid.UUID) (*ReorderResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}

	restaurant, err := s.store.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if !restaurant.IsActive {
		return nil, ErrRestaurantInactive
	}

	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.MenuItemID
	}
	menuItems, err := s.store.ListMenuItemsByIDs(ctx, database.ListMenuItemsByIDsParams{
		RestaurantID: order.RestaurantID,
		IDs:          ids,
	})
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	byID := make(map[uuid.UUID]database.MenuItem, len(menuItems))
	for _, m := range menuItems {
		byID[m.ID] = m
	}

	c := &cart.Cart{UserID: userID, RestaurantID: order.RestaurantID}
	var dropped []string
	for _, it := range items {
		m, ok := byID[it.MenuItemID]
		if !ok || !m.IsAvailable {
			dropped = append(dropped, it.Name)
			continue
		}
		customizations := ""
		if it.Customizations.Valid {
			customizations = it.Customizations.String
		}
		c.Items = append(c.Items, cart.Line{
			MenuItemID:     m.ID,
			Name:           m.Name,
			Quantity:       it.Quantity,
			UnitPrice:      numericToDecimal(m.Price).StringFixed(2),
			Customizations: customizations,
		})
	}

	if len(c.Items) == 0 {
		return nil, fmt.Errorf("%w: no items from this order are still available", ErrConflict)
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return &ReorderResult{Cart: c, Dropped: dropped}, nil
}

func (s *OrderService) notifyStatus(ctx context.Context, o database.Order) {
	var title, ntype string
	switch o.Status {
	case enum.OrderStatusConfirmed:
		title, ntype = "Order confirmed", enum.NotificationOrderConfirmed
	case enum.OrderStatusDelivered:
		title, ntype = "Order delivered", enum.NotificationOrderDelivered
	case enum.OrderStatusCancelled:
		title, ntype = "Order cancelled", enum.NotificationOrderCancelled
	default:
		title, ntype = "Order update", enum.NotificationOrderConfirmed
	}
	s.notifier.Notify(ctx, o.UserID, title,
		fmt.Sprintf("Order %s is now %s.", o.OrderNumber, o.Status), ntype)
}

func (s *OrderService) publish(ctx context.Context, o database.Order) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		UserID:       o.UserID,
		RestaurantID: o.RestaurantID,
		Status:       o.Status,
		TotalAmount:  numericToString(o.TotalAmount),
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, o.ID.String(), event); err != nil {
		logrus.WithError(err).WithField("order_id", o.ID).Warn("publish order event")
	}
}

// withinOperatingHours checks "HH:MM" open and close times against now.
// Missing hours mean always open; a close before the open spans midnight.
func withinOperatingHours(opensAt, closesAt pgtype.Text, now time.Time) bool {
	if !opensAt.Valid || !closesAt.Valid {
		return true
	}
	openT, err1 := time.Parse("15:04", opensAt.String)
	closeT, err2 := time.Parse("15:04", closesAt.String)
	if err1 != nil || err2 != nil {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	o := openT.Hour()*60 + openT.Minute()
	c := closeT.Hour()*60 + closeT.Minute()
	if o <= c {
		return cur >= o && cur < c
	}
	return cur >= o || cur < c
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}
