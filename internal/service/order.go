package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// tokenPattern is the pickup-token format: a hash sign followed by
// exactly five digits, e.g. "#12345".
var tokenPattern = regexp.MustCompile(`^#\d{5}$`)

// amountTolerance is the maximum allowed difference between the
// client-submitted total and the server-recomputed one.
var amountTolerance = decimal.NewFromFloat(0.01)

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrMissingTimeSlot     = errors.New("time slot is required")
	ErrInvalidTotal        = errors.New("valid total amount is required")
	ErrInvalidToken        = errors.New("valid token is required")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidFoodItemID   = errors.New("invalid food item id")
	ErrFoodItemNotFound    = errors.New("food item not found")
	ErrFoodItemUnavailable = errors.New("food item is not available")
	ErrInvalidMealType     = errors.New("invalid meal type")
	ErrInvalidQuantity     = errors.New("valid quantity is required")
	ErrAmountMismatch      = errors.New("total amount doesn't match item prices")
	ErrTokenTaken          = errors.New("token already exists, generate a new token")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to place orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetFoodItem(ctx context.Context, id uuid.UUID) (database.FoodItem, error)
	GetOrderByToken(ctx context.Context, token string) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// PlaceOrderRequest is the cart submission for a single order.
type PlaceOrderRequest struct {
	UserID      uuid.UUID
	Items       []PlaceOrderItem
	TimeSlot    string
	TotalAmount decimal.Decimal
	Token       string
	Notes       string
}

// PlaceOrderItem is a single requested line. Any client-supplied name
// or price is ignored; pricing comes from the catalog at submission
// time.
type PlaceOrderItem struct {
	FoodItemID string
	Quantity   int32
	MealType   string
}

// PlaceOrderResult is the persisted order with its snapshot lines.
type PlaceOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService validates cart submissions and commits them to the
// order ledger.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// snapshotLine holds a validated line with its catalog-derived price,
// ready to insert once the order row exists.
type snapshotLine struct {
	foodItemID uuid.UUID
	name       string
	price      decimal.Decimal
	quantity   int32
	mealType   string
}

// PlaceOrder runs the intake validation sequence and persists the
// order atomically. Checks run in a fixed order and the first failure
// wins; nothing is written unless every check passes.
//
// The token pre-check is only an early exit: two concurrent submissions
// can both pass it, and the orders_token_key constraint at insert time
// is the real authority. A constraint violation there surfaces as the
// same ErrTokenTaken as the pre-check.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.TimeSlot == "" {
		return nil, ErrMissingTimeSlot
	}
	if !req.TotalAmount.IsPositive() {
		return nil, ErrInvalidTotal
	}
	if !tokenPattern.MatchString(req.Token) {
		return nil, ErrInvalidToken
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	user, err := store.GetUserByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	// Re-derive the authoritative total from current catalog prices and
	// build the snapshot lines as we go.
	calculatedTotal := decimal.Zero
	var lines []snapshotLine

	for i, item := range req.Items {
		foodItemID, err := uuid.Parse(item.FoodItemID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidFoodItemID)
		}

		foodItem, err := store.GetFoodItem(ctx, foodItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrFoodItemNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get food item: %w", i, err)
		}
		if !foodItem.Available {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrFoodItemUnavailable)
		}

		if !enum.IsValidMealType(item.MealType) {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMealType)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}

		price := numericToDecimal(foodItem.Price)
		calculatedTotal = calculatedTotal.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))

		lines = append(lines, snapshotLine{
			foodItemID: foodItemID,
			name:       foodItem.Name,
			price:      price,
			quantity:   item.Quantity,
			mealType:   item.MealType,
		})
	}

	if calculatedTotal.Sub(req.TotalAmount).Abs().GreaterThan(amountTolerance) {
		return nil, ErrAmountMismatch
	}

	// Early exit for an already-used token.
	if _, err := store.GetOrderByToken(ctx, req.Token); err == nil {
		return nil, ErrTokenTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check token: %w", err)
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:      user.ID,
		UserIndexNo: user.IndexNo,
		TimeSlot:    req.TimeSlot,
		TotalAmount: decimalToNumeric(calculatedTotal),
		Token:       req.Token,
		Notes:       notes,
	})
	if err != nil {
		if isTokenConflict(err) {
			return nil, ErrTokenTaken
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for pos, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			FoodItemID: line.foodItemID,
			Name:       line.name,
			Price:      decimalToNumeric(line.price),
			Quantity:   line.quantity,
			MealType:   line.mealType,
			Position:   int32(pos),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		if isTokenConflict(err) {
			return nil, ErrTokenTaken
		}
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PlaceOrderResult{Order: order, Items: items}, nil
}

// isTokenConflict checks for a unique constraint violation on the
// pickup token (pgconn error code 23505).
func isTokenConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_token_key"
	}
	return false
}

// --- Helpers shared across services ---

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
