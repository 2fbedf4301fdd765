package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to HTTP status codes with errors.Is,
// so every service error wraps exactly one kind.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Errors returned by the cart and order services.
var (
	ErrEmptyCart              = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrInvalidQuantity        = fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	ErrInvalidMenuItemID      = fmt.Errorf("%w: invalid menu_item_id", ErrValidation)
	ErrCancelReasonRequired   = fmt.Errorf("%w: reason is required", ErrValidation)
	ErrMenuItemNotFound       = fmt.Errorf("%w: menu item", ErrNotFound)
	ErrMenuItemUnavailable    = fmt.Errorf("%w: menu item is not available", ErrConflict)
	ErrRestaurantNotFound     = fmt.Errorf("%w: restaurant", ErrNotFound)
	ErrRestaurantInactive     = fmt.Errorf("%w: restaurant is not accepting orders", ErrConflict)
	ErrRestaurantClosed       = fmt.Errorf("%w: restaurant is closed", ErrConflict)
	ErrOrderNotFound          = fmt.Errorf("%w: order", ErrNotFound)
	ErrCouponNotFound         = fmt.Errorf("%w: coupon", ErrNotFound)
	ErrCouponExhausted        = fmt.Errorf("%w: coupon usage limit reached", ErrConflict)
	ErrCartRestaurantMismatch = fmt.Errorf("%w: cart holds items from another restaurant", ErrConflict)
	ErrCartItemNotFound       = fmt.Errorf("%w: cart item", ErrNotFound)
	ErrBelowMinimumOrder      = fmt.Errorf("%w: order total is below the restaurant minimum", ErrValidation)
	ErrStatusChanged          = fmt.Errorf("%w: order status changed, please retry", ErrConflict)
	ErrNotOrderOwner          = fmt.Errorf("%w: order belongs to another user", ErrForbidden)
	ErrCancelWindowClosed     = fmt.Errorf("%w: order can no longer be cancelled by the customer", ErrForbidden)
)
