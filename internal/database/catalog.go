package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ── Food items ──

const foodItemColumns = `id, display_id, name, price, available, created_by, created_at, updated_at`

func scanFoodItem(row interface{ Scan(...any) error }) (FoodItem, error) {
	var f FoodItem
	err := row.Scan(&f.ID, &f.DisplayID, &f.Name, &f.Price, &f.Available,
		&f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

const listFoodItems = `
SELECT ` + foodItemColumns + `
FROM food_items
WHERE ($1::boolean IS NULL OR available = $1)
ORDER BY created_at DESC
`

// ListFoodItems returns all food items, optionally filtered by
// availability. An invalid (NULL) Available means no filter.
func (q *Queries) ListFoodItems(ctx context.Context, available pgtype.Bool) ([]FoodItem, error) {
	rows, err := q.db.Query(ctx, listFoodItems, available)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FoodItem
	for rows.Next() {
		f, err := scanFoodItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

const getFoodItem = `
SELECT ` + foodItemColumns + `
FROM food_items
WHERE id = $1
`

func (q *Queries) GetFoodItem(ctx context.Context, id uuid.UUID) (FoodItem, error) {
	return scanFoodItem(q.db.QueryRow(ctx, getFoodItem, id))
}

const countFoodItems = `SELECT count(*) FROM food_items`

func (q *Queries) CountFoodItems(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countFoodItems).Scan(&n)
	return n, err
}

const foodItemNameExists = `
SELECT EXISTS (
    SELECT 1 FROM food_items
    WHERE lower(name) = lower($1) AND id <> $2
)
`

type FoodItemNameExistsParams struct {
	Name      string
	ExcludeID uuid.UUID
}

// FoodItemNameExists reports whether another food item already uses the
// name, case-insensitively. Pass uuid.Nil as ExcludeID on create.
func (q *Queries) FoodItemNameExists(ctx context.Context, arg FoodItemNameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, foodItemNameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

const createFoodItem = `
INSERT INTO food_items (display_id, name, price, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + foodItemColumns + `
`

type CreateFoodItemParams struct {
	DisplayID string
	Name      string
	Price     pgtype.Numeric
	CreatedBy uuid.UUID
}

func (q *Queries) CreateFoodItem(ctx context.Context, arg CreateFoodItemParams) (FoodItem, error) {
	return scanFoodItem(q.db.QueryRow(ctx, createFoodItem,
		arg.DisplayID, arg.Name, arg.Price, arg.CreatedBy))
}

const updateFoodItem = `
UPDATE food_items
SET name = $2, price = $3, available = $4, updated_at = now()
WHERE id = $1
RETURNING ` + foodItemColumns + `
`

type UpdateFoodItemParams struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Available bool
}

func (q *Queries) UpdateFoodItem(ctx context.Context, arg UpdateFoodItemParams) (FoodItem, error) {
	return scanFoodItem(q.db.QueryRow(ctx, updateFoodItem,
		arg.ID, arg.Name, arg.Price, arg.Available))
}

const setFoodItemAvailability = `
UPDATE food_items
SET available = $2, updated_at = now()
WHERE id = $1
RETURNING ` + foodItemColumns + `
`

type SetFoodItemAvailabilityParams struct {
	ID        uuid.UUID
	Available bool
}

func (q *Queries) SetFoodItemAvailability(ctx context.Context, arg SetFoodItemAvailabilityParams) (FoodItem, error) {
	return scanFoodItem(q.db.QueryRow(ctx, setFoodItemAvailability, arg.ID, arg.Available))
}

const deleteFoodItem = `
DELETE FROM food_items WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteFoodItem(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	return q.db.QueryRow(ctx, deleteFoodItem, id).Scan(&deleted)
}

const listAvailableFoodItemIDs = `
SELECT id FROM food_items
WHERE id = ANY($1::uuid[]) AND available
`

// ListAvailableFoodItemIDs filters candidate ids down to those that
// exist and are currently available. Nonexistent ids simply drop out.
func (q *Queries) ListAvailableFoodItemIDs(ctx context.Context, ids []string) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listAvailableFoodItemIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ── Curries ──

const curryColumns = `id, display_id, name, available, created_by, created_at, updated_at`

func scanCurry(row interface{ Scan(...any) error }) (Curry, error) {
	var c Curry
	err := row.Scan(&c.ID, &c.DisplayID, &c.Name, &c.Available,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCurries = `
SELECT ` + curryColumns + `
FROM curries
WHERE ($1::boolean IS NULL OR available = $1)
ORDER BY created_at DESC
`

func (q *Queries) ListCurries(ctx context.Context, available pgtype.Bool) ([]Curry, error) {
	rows, err := q.db.Query(ctx, listCurries, available)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var curries []Curry
	for rows.Next() {
		c, err := scanCurry(rows)
		if err != nil {
			return nil, err
		}
		curries = append(curries, c)
	}
	return curries, rows.Err()
}

const getCurry = `
SELECT ` + curryColumns + `
FROM curries
WHERE id = $1
`

func (q *Queries) GetCurry(ctx context.Context, id uuid.UUID) (Curry, error) {
	return scanCurry(q.db.QueryRow(ctx, getCurry, id))
}

const countCurries = `SELECT count(*) FROM curries`

func (q *Queries) CountCurries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countCurries).Scan(&n)
	return n, err
}

const curryNameExists = `
SELECT EXISTS (
    SELECT 1 FROM curries
    WHERE lower(name) = lower($1) AND id <> $2
)
`

type CurryNameExistsParams struct {
	Name      string
	ExcludeID uuid.UUID
}

func (q *Queries) CurryNameExists(ctx context.Context, arg CurryNameExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, curryNameExists, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

const createCurry = `
INSERT INTO curries (display_id, name, created_by)
VALUES ($1, $2, $3)
RETURNING ` + curryColumns + `
`

type CreateCurryParams struct {
	DisplayID string
	Name      string
	CreatedBy uuid.UUID
}

func (q *Queries) CreateCurry(ctx context.Context, arg CreateCurryParams) (Curry, error) {
	return scanCurry(q.db.QueryRow(ctx, createCurry, arg.DisplayID, arg.Name, arg.CreatedBy))
}

const updateCurry = `
UPDATE curries
SET name = $2, available = $3, updated_at = now()
WHERE id = $1
RETURNING ` + curryColumns + `
`

type UpdateCurryParams struct {
	ID        uuid.UUID
	Name      string
	Available bool
}

func (q *Queries) UpdateCurry(ctx context.Context, arg UpdateCurryParams) (Curry, error) {
	return scanCurry(q.db.QueryRow(ctx, updateCurry, arg.ID, arg.Name, arg.Available))
}

const setCurryAvailability = `
UPDATE curries
SET available = $2, updated_at = now()
WHERE id = $1
RETURNING ` + curryColumns + `
`

type SetCurryAvailabilityParams struct {
	ID        uuid.UUID
	Available bool
}

func (q *Queries) SetCurryAvailability(ctx context.Context, arg SetCurryAvailabilityParams) (Curry, error) {
	return scanCurry(q.db.QueryRow(ctx, setCurryAvailability, arg.ID, arg.Available))
}

const deleteCurry = `
DELETE FROM curries WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteCurry(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	return q.db.QueryRow(ctx, deleteCurry, id).Scan(&deleted)
}

const listAvailableCurryIDs = `
SELECT id FROM curries
WHERE id = ANY($1::uuid[]) AND available
`

func (q *Queries) ListAvailableCurryIDs(ctx context.Context, ids []string) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listAvailableCurryIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
