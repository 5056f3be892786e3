package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const maxUpsertAttempts = 2

// ErrScheduleConflict is returned when an upsert keeps losing the
// active-menu-per-date race; callers should retry.
var ErrScheduleConflict = errors.New("daily menu changed concurrently, please retry")

// ScheduleStore defines the DB methods needed to upsert daily menus.
// Satisfied by *database.Queries (and its WithTx variant).
type ScheduleStore interface {
	ListAvailableFoodItemIDs(ctx context.Context, ids []string) ([]uuid.UUID, error)
	ListAvailableCurryIDs(ctx context.Context, ids []string) ([]uuid.UUID, error)
	GetActiveMenuByDate(ctx context.Context, date time.Time) (database.DailyMenu, error)
	CreateDailyMenu(ctx context.Context, arg database.CreateDailyMenuParams) (database.DailyMenu, error)
	SetDailyMenuOwner(ctx context.Context, arg database.SetDailyMenuOwnerParams) (database.DailyMenu, error)
	DeleteMenuSlotItems(ctx context.Context, menuID uuid.UUID) error
	CreateMenuSlotItem(ctx context.Context, arg database.CreateMenuSlotItemParams) error
}

// NewScheduleStore creates a ScheduleStore from a DBTX (pool or tx).
type NewScheduleStore func(db database.DBTX) ScheduleStore

// SlotRequest carries the submitted id sets for one meal slot.
type SlotRequest struct {
	FoodItems []string
	Curries   []string
}

// UpsertScheduleRequest is the admin submission for one calendar date.
type UpsertScheduleRequest struct {
	Date      time.Time
	Breakfast SlotRequest
	Lunch     SlotRequest
	Dinner    SlotRequest
	CreatedBy uuid.UUID
}

// ScheduleService maintains the one-active-menu-per-date invariant.
type ScheduleService struct {
	pool     TxBeginner
	newStore NewScheduleStore
}

func NewScheduleService(pool TxBeginner, newStore NewScheduleStore) *ScheduleService {
	return &ScheduleService{pool: pool, newStore: newStore}
}

// NormalizeDate truncates t to midnight in its own location.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Upsert creates or replaces the active menu for the request's date.
// Submitted ids that are unavailable, unknown, or malformed are
// silently dropped rather than rejected. Calling twice with the same
// input yields the same persisted state.
//
// Two concurrent upserts for a fresh date can both see "no active menu"
// and race to insert; the daily_menus_active_date_key index decides the
// winner and the loser retries as an in-place update.
func (s *ScheduleService) Upsert(ctx context.Context, req UpsertScheduleRequest) (*database.DailyMenu, error) {
	date := NormalizeDate(req.Date)

	var lastErr error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		menu, err := s.upsertTx(ctx, date, req)
		if err == nil {
			return menu, nil
		}
		if isActiveDateConflict(err) {
			lastErr = ErrScheduleConflict
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *ScheduleService) upsertTx(ctx context.Context, date time.Time, req UpsertScheduleRequest) (*database.DailyMenu, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	menu, err := store.GetActiveMenuByDate(ctx, date)
	if errors.Is(err, pgx.ErrNoRows) {
		menu, err = store.CreateDailyMenu(ctx, database.CreateDailyMenuParams{
			MenuDate:  date,
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("get active menu: %w", err)
	} else {
		menu, err = store.SetDailyMenuOwner(ctx, database.SetDailyMenuOwnerParams{
			ID:        menu.ID,
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return nil, fmt.Errorf("update menu owner: %w", err)
		}
		if err := store.DeleteMenuSlotItems(ctx, menu.ID); err != nil {
			return nil, fmt.Errorf("clear menu slots: %w", err)
		}
	}

	slots := []struct {
		mealType string
		req      SlotRequest
	}{
		{enum.MealTypeBreakfast, req.Breakfast},
		{enum.MealTypeLunch, req.Lunch},
		{enum.MealTypeDinner, req.Dinner},
	}

	for _, slot := range slots {
		foodIDs, err := filterAvailable(ctx, store.ListAvailableFoodItemIDs, slot.req.FoodItems)
		if err != nil {
			return nil, fmt.Errorf("filter food items: %w", err)
		}
		for _, id := range foodIDs {
			err := store.CreateMenuSlotItem(ctx, database.CreateMenuSlotItemParams{
				MenuID:   menu.ID,
				MealType: slot.mealType,
				ItemKind: enum.MenuItemKindFood,
				ItemID:   id,
			})
			if err != nil {
				return nil, fmt.Errorf("add food item to slot: %w", err)
			}
		}

		curryIDs, err := filterAvailable(ctx, store.ListAvailableCurryIDs, slot.req.Curries)
		if err != nil {
			return nil, fmt.Errorf("filter curries: %w", err)
		}
		for _, id := range curryIDs {
			err := store.CreateMenuSlotItem(ctx, database.CreateMenuSlotItemParams{
				MenuID:   menu.ID,
				MealType: slot.mealType,
				ItemKind: enum.MenuItemKindCurry,
				ItemID:   id,
			})
			if err != nil {
				return nil, fmt.Errorf("add curry to slot: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &menu, nil
}

// filterAvailable drops malformed ids locally, then asks the store
// which of the rest exist and are available. Duplicates collapse so an
// id submitted twice lands in the slot once.
func filterAvailable(ctx context.Context, lookup func(context.Context, []string) ([]uuid.UUID, error), ids []string) ([]uuid.UUID, error) {
	var parsed []string
	for _, raw := range ids {
		if _, err := uuid.Parse(raw); err != nil {
			continue
		}
		parsed = append(parsed, raw)
	}
	if len(parsed) == 0 {
		return nil, nil
	}

	found, err := lookup(ctx, parsed)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(found))
	var out []uuid.UUID
	for _, id := range found {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// isActiveDateConflict checks for a unique violation on the one-active-
// menu-per-date index (pgconn error code 23505).
func isActiveDateConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "daily_menus_active_date_key"
	}
	return false
}
