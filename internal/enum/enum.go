package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusPickedUp  = "picked_up"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ── Roles (CHECK constrained in DB) ──

const (
	RoleUser       = "USER"
	RoleRestaurant = "RESTAURANT"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED_AMOUNT"
)

// ── Notification types (configurable labels, no DB constraint) ──

const (
	NotificationOrderPlaced    = "ORDER_PLACED"
	NotificationOrderConfirmed = "ORDER_CONFIRMED"
	NotificationOrderDelivered = "ORDER_DELIVERED"
	NotificationOrderCancelled = "ORDER_CANCELLED"
	NotificationAnnouncement   = "ANNOUNCEMENT"
)

// ValidRole reports whether s is one of the closed role set.
// Roles are validated at every write boundary; legacy free-form values
// are normalized once by migration, never self-healed at read time.
func ValidRole(s string) bool {
	switch s {
	case RoleUser, RoleRestaurant, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// ValidOrderStatus reports whether s is a recognized order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusPickedUp, OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}

// ValidDiscountType reports whether s is a recognized discount type.
func ValidDiscountType(s string) bool {
	switch s {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}
