package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, user_index_no, time_slot, total_amount, token, status,
    order_date, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.UserIndexNo, &o.TimeSlot, &o.TotalAmount,
		&o.Token, &o.Status, &o.OrderDate, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const createOrder = `
INSERT INTO orders (user_id, user_index_no, time_slot, total_amount, token, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	UserID      uuid.UUID
	UserIndexNo string
	TimeSlot    string
	TotalAmount pgtype.Numeric
	Token       string
	Notes       pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.UserIndexNo, arg.TimeSlot, arg.TotalAmount, arg.Token, arg.Notes))
}

const createOrderItem = `
INSERT INTO order_items (order_id, food_item_id, name, price, quantity, meal_type, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, food_item_id, name, price, quantity, meal_type, position
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	FoodItemID uuid.UUID
	Name       string
	Price      pgtype.Numeric
	Quantity   int32
	MealType   string
	Position   int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.FoodItemID, arg.Name, arg.Price, arg.Quantity, arg.MealType, arg.Position)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.FoodItemID, &i.Name, &i.Price,
		&i.Quantity, &i.MealType, &i.Position)
	return i, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderByToken = `
SELECT ` + orderColumns + `
FROM orders
WHERE token = $1
`

func (q *Queries) GetOrderByToken(ctx context.Context, token string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByToken, token))
}

const getOrderByTokenAndUser = `
SELECT ` + orderColumns + `
FROM orders
WHERE token = $1 AND user_id = $2
`

type GetOrderByTokenAndUserParams struct {
	Token  string
	UserID uuid.UUID
}

func (q *Queries) GetOrderByTokenAndUser(ctx context.Context, arg GetOrderByTokenAndUserParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByTokenAndUser, arg.Token, arg.UserID))
}

const listOrderItemsByOrder = `
SELECT id, order_id, food_item_id, name, price, quantity, meal_type, position
FROM order_items
WHERE order_id = $1
ORDER BY position
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.FoodItemID, &i.Name, &i.Price,
			&i.Quantity, &i.MealType, &i.Position); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrdersByUser = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
  AND ($2::text IS NULL OR status = $2)
ORDER BY order_date DESC
LIMIT $3 OFFSET $4
`

type ListOrdersByUserParams struct {
	UserID uuid.UUID
	Status pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const countOrdersByUser = `
SELECT count(*)
FROM orders
WHERE user_id = $1
  AND ($2::text IS NULL OR status = $2)
`

type CountOrdersByUserParams struct {
	UserID uuid.UUID
	Status pgtype.Text
}

func (q *Queries) CountOrdersByUser(ctx context.Context, arg CountOrdersByUserParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersByUser, arg.UserID, arg.Status).Scan(&n)
	return n, err
}

// Admin-wide listing. mealType matches when any line item carries it;
// search matches token or owner index number, case-insensitively; date
// scopes order_date to one calendar day.
const listAllOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR EXISTS (
      SELECT 1 FROM order_items oi
      WHERE oi.order_id = orders.id AND oi.meal_type = $2
  ))
  AND ($3::timestamptz IS NULL OR (order_date >= $3 AND order_date < $3 + interval '1 day'))
  AND ($4::text IS NULL OR token ILIKE '%' || $4 || '%' OR user_index_no ILIKE '%' || $4 || '%')
ORDER BY order_date DESC
LIMIT $5 OFFSET $6
`

type ListAllOrdersParams struct {
	Status   pgtype.Text
	MealType pgtype.Text
	DayStart pgtype.Timestamptz
	Search   pgtype.Text
	Limit    int32
	Offset   int32
}

func (q *Queries) ListAllOrders(ctx context.Context, arg ListAllOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listAllOrders,
		arg.Status, arg.MealType, arg.DayStart, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const countAllOrders = `
SELECT count(*)
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR EXISTS (
      SELECT 1 FROM order_items oi
      WHERE oi.order_id = orders.id AND oi.meal_type = $2
  ))
  AND ($3::timestamptz IS NULL OR (order_date >= $3 AND order_date < $3 + interval '1 day'))
  AND ($4::text IS NULL OR token ILIKE '%' || $4 || '%' OR user_index_no ILIKE '%' || $4 || '%')
`

type CountAllOrdersParams struct {
	Status   pgtype.Text
	MealType pgtype.Text
	DayStart pgtype.Timestamptz
	Search   pgtype.Text
}

func (q *Queries) CountAllOrders(ctx context.Context, arg CountAllOrdersParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countAllOrders,
		arg.Status, arg.MealType, arg.DayStart, arg.Search).Scan(&n)
	return n, err
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}
