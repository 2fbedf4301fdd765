package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	IsActive       bool
	IsVerified     bool
	RewardPoints   int32
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ArchivedAt     pgtype.Timestamptz
}

type Restaurant struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Name           string
	Description    pgtype.Text
	Address        pgtype.Text
	Phone          pgtype.Text
	IsActive       bool
	OpensAt        pgtype.Text // "HH:MM", local to the restaurant
	ClosesAt       pgtype.Text
	DeliveryFee    pgtype.Numeric
	MinOrderAmount pgtype.Numeric
	BankName       pgtype.Text
	BankAccount    pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type MenuItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	Category     pgtype.Text
	Price        pgtype.Numeric
	IsAvailable  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID             uuid.UUID
	OrderNumber    string
	UserID         uuid.UUID
	RestaurantID   uuid.UUID
	Status         string
	CouponCode     pgtype.Text
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	DeliveryFee    pgtype.Numeric
	TotalAmount    pgtype.Numeric
	DeliveredAt    pgtype.Timestamptz
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	MenuItemID     uuid.UUID
	Name           string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	Customizations pgtype.Text
}

type OrderStatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    string
	Note      pgtype.Text
	ActorID   pgtype.UUID
	CreatedAt time.Time
}

type Discount struct {
	ID                uuid.UUID
	RestaurantID      uuid.UUID
	Code              string
	Type              string
	Value             pgtype.Numeric
	MinOrderAmount    pgtype.Numeric
	MaxDiscountAmount pgtype.Numeric
	UsageLimit        int32
	UsedCount         int32
	StartsAt          time.Time
	EndsAt            time.Time
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Message   string
	Type      string
	IsRead    bool
	ReadAt    pgtype.Timestamptz
	CreatedAt time.Time
}
