package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const dailyMenuColumns = `id, menu_date, is_active, created_by, created_at, updated_at`

func scanDailyMenu(row interface{ Scan(...any) error }) (DailyMenu, error) {
	var m DailyMenu
	err := row.Scan(&m.ID, &m.MenuDate, &m.IsActive, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const getActiveMenuByDate = `
SELECT ` + dailyMenuColumns + `
FROM daily_menus
WHERE menu_date = $1 AND is_active
`

// GetActiveMenuByDate expects date to be normalized to midnight; the
// partial unique index guarantees at most one row.
func (q *Queries) GetActiveMenuByDate(ctx context.Context, date time.Time) (DailyMenu, error) {
	return scanDailyMenu(q.db.QueryRow(ctx, getActiveMenuByDate, date))
}

const getDailyMenu = `
SELECT ` + dailyMenuColumns + `
FROM daily_menus
WHERE id = $1
`

func (q *Queries) GetDailyMenu(ctx context.Context, id uuid.UUID) (DailyMenu, error) {
	return scanDailyMenu(q.db.QueryRow(ctx, getDailyMenu, id))
}

const createDailyMenu = `
INSERT INTO daily_menus (menu_date, created_by)
VALUES ($1, $2)
RETURNING ` + dailyMenuColumns + `
`

type CreateDailyMenuParams struct {
	MenuDate  time.Time
	CreatedBy uuid.UUID
}

func (q *Queries) CreateDailyMenu(ctx context.Context, arg CreateDailyMenuParams) (DailyMenu, error) {
	return scanDailyMenu(q.db.QueryRow(ctx, createDailyMenu, arg.MenuDate, arg.CreatedBy))
}

const setDailyMenuOwner = `
UPDATE daily_menus
SET created_by = $2, updated_at = now()
WHERE id = $1
RETURNING ` + dailyMenuColumns + `
`

type SetDailyMenuOwnerParams struct {
	ID        uuid.UUID
	CreatedBy uuid.UUID
}

func (q *Queries) SetDailyMenuOwner(ctx context.Context, arg SetDailyMenuOwnerParams) (DailyMenu, error) {
	return scanDailyMenu(q.db.QueryRow(ctx, setDailyMenuOwner, arg.ID, arg.CreatedBy))
}

const deleteDailyMenu = `
DELETE FROM daily_menus WHERE id = $1 RETURNING id
`

func (q *Queries) DeleteDailyMenu(ctx context.Context, id uuid.UUID) error {
	var deleted uuid.UUID
	return q.db.QueryRow(ctx, deleteDailyMenu, id).Scan(&deleted)
}

const listActiveMenus = `
SELECT ` + dailyMenuColumns + `
FROM daily_menus
WHERE is_active
ORDER BY menu_date DESC
LIMIT $1 OFFSET $2
`

type ListActiveMenusParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListActiveMenus(ctx context.Context, arg ListActiveMenusParams) ([]DailyMenu, error) {
	rows, err := q.db.Query(ctx, listActiveMenus, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []DailyMenu
	for rows.Next() {
		m, err := scanDailyMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

const countActiveMenus = `SELECT count(*) FROM daily_menus WHERE is_active`

func (q *Queries) CountActiveMenus(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countActiveMenus).Scan(&n)
	return n, err
}

const deleteMenuSlotItems = `
DELETE FROM daily_menu_items WHERE menu_id = $1
`

func (q *Queries) DeleteMenuSlotItems(ctx context.Context, menuID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteMenuSlotItems, menuID)
	return err
}

const createMenuSlotItem = `
INSERT INTO daily_menu_items (menu_id, meal_type, item_kind, item_id)
VALUES ($1, $2, $3, $4)
`

type CreateMenuSlotItemParams struct {
	MenuID   uuid.UUID
	MealType string
	ItemKind string
	ItemID   uuid.UUID
}

func (q *Queries) CreateMenuSlotItem(ctx context.Context, arg CreateMenuSlotItemParams) error {
	_, err := q.db.Exec(ctx, createMenuSlotItem, arg.MenuID, arg.MealType, arg.ItemKind, arg.ItemID)
	return err
}

const listMenuFoodItems = `
SELECT ` + foodItemColumns + `
FROM food_items
JOIN daily_menu_items mi ON mi.item_id = food_items.id
WHERE mi.menu_id = $1 AND mi.meal_type = $2 AND mi.item_kind = 'food'
ORDER BY food_items.name
`

type ListMenuSlotParams struct {
	MenuID   uuid.UUID
	MealType string
}

// ListMenuFoodItems resolves a slot's food references. Joining against
// the catalog drops dangling references from hard-deleted entries.
func (q *Queries) ListMenuFoodItems(ctx context.Context, arg ListMenuSlotParams) ([]FoodItem, error) {
	rows, err := q.db.Query(ctx, listMenuFoodItems, arg.MenuID, arg.MealType)
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

const listMenuCurries = `
SELECT ` + curryColumns + `
FROM curries
JOIN daily_menu_items mi ON mi.item_id = curries.id
WHERE mi.menu_id = $1 AND mi.meal_type = $2 AND mi.item_kind = 'curry'
ORDER BY curries.name
`

func (q *Queries) ListMenuCurries(ctx context.Context, arg ListMenuSlotParams) ([]Curry, error) {
	rows, err := q.db.Query(ctx, listMenuCurries, arg.MenuID, arg.MealType)
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
