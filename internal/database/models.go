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
	IndexNo        string
	HashedPassword string
	Role           string
	CreatedAt      time.Time
}

type FoodItem struct {
	ID        uuid.UUID
	DisplayID string
	Name      string
	Price     pgtype.Numeric
	Available bool
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Curry struct {
	ID        uuid.UUID
	DisplayID string
	Name      string
	Available bool
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DailyMenu struct {
	ID        uuid.UUID
	MenuDate  time.Time
	IsActive  bool
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	UserIndexNo string
	TimeSlot    string
	TotalAmount pgtype.Numeric
	Token       string
	Status      string
	OrderDate   time.Time
	Notes       pgtype.Text
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem is an immutable snapshot of a catalog entry at purchase
// time. Name and price are copied, never re-resolved from the catalog.
type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FoodItemID uuid.UUID
	Name       string
	Price      pgtype.Numeric
	Quantity   int32
	MealType   string
	Position   int32
}
