package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/enum"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/middleware"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const dateLayout = "2006-01-02"

// DailyMealStore defines the database methods needed by daily meal
// handlers. Satisfied by *database.Queries.
type DailyMealStore interface {
	GetActiveMenuByDate(ctx context.Context, date time.Time) (database.DailyMenu, error)
	DeleteDailyMenu(ctx context.Context, id uuid.UUID) error
	ListActiveMenus(ctx context.Context, arg database.ListActiveMenusParams) ([]database.DailyMenu, error)
	CountActiveMenus(ctx context.Context) (int64, error)
	ListMenuFoodItems(ctx context.Context, arg database.ListMenuSlotParams) ([]database.FoodItem, error)
	ListMenuCurries(ctx context.Context, arg database.ListMenuSlotParams) ([]database.Curry, error)
}

// ScheduleUpserter creates or replaces the active menu for a date.
// Satisfied by *service.ScheduleService.
type ScheduleUpserter interface {
	Upsert(ctx context.Context, req service.UpsertScheduleRequest) (*database.DailyMenu, error)
}

// DailyMealHandler handles the daily meal schedule endpoints.
type DailyMealHandler struct {
	store    DailyMealStore
	schedule ScheduleUpserter
}

func NewDailyMealHandler(store DailyMealStore, schedule ScheduleUpserter) *DailyMealHandler {
	return &DailyMealHandler{store: store, schedule: schedule}
}

func (h *DailyMealHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/daily-meals", h.Get)
}

func (h *DailyMealHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/daily-meals", h.Upsert)
	r.Get("/daily-meals/history", h.History)
	r.Delete("/daily-meals/{id}", h.Delete)
}

type slotRequest struct {
	FoodItems []string `json:"foodItems"`
	Curries   []string `json:"curries"`
}

type upsertDailyMealRequest struct {
	Date      string      `json:"date"`
	Breakfast slotRequest `json:"breakfast"`
	Lunch     slotRequest `json:"lunch"`
	Dinner    slotRequest `json:"dinner"`
}

type mealSlotResponse struct {
	FoodItems []foodItemResponse `json:"foodItems"`
	Curries   []curryResponse    `json:"curries"`
}

type dailyMealResponse struct {
	ID        uuid.UUID        `json:"id,omitempty"`
	Date      string           `json:"date"`
	Breakfast mealSlotResponse `json:"breakfast"`
	Lunch     mealSlotResponse `json:"lunch"`
	Dinner    mealSlotResponse `json:"dinner"`
	Exists    bool             `json:"exists"`
	CreatedBy uuid.UUID        `json:"createdBy,omitempty"`
	CreatedAt *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}

func emptySlot() mealSlotResponse {
	return mealSlotResponse{FoodItems: []foodItemResponse{}, Curries: []curryResponse{}}
}

func emptyDailyMeal(date time.Time) dailyMealResponse {
	return dailyMealResponse{
		Date:      date.Format(dateLayout),
		Breakfast: emptySlot(),
		Lunch:     emptySlot(),
		Dinner:    emptySlot(),
		Exists:    false,
	}
}

func (h *DailyMealHandler) buildSlot(ctx context.Context, menuID uuid.UUID, mealType string) (mealSlotResponse, error) {
	slot := emptySlot()

	foods, err := h.store.ListMenuFoodItems(ctx, database.ListMenuSlotParams{MenuID: menuID, MealType: mealType})
	if err != nil {
		return slot, err
	}
	for _, f := range foods {
		slot.FoodItems = append(slot.FoodItems, toFoodItemResponse(f))
	}

	curries, err := h.store.ListMenuCurries(ctx, database.ListMenuSlotParams{MenuID: menuID, MealType: mealType})
	if err != nil {
		return slot, err
	}
	for _, c := range curries {
		slot.Curries = append(slot.Curries, toCurryResponse(c))
	}

	return slot, nil
}

func (h *DailyMealHandler) buildDailyMeal(ctx context.Context, menu database.DailyMenu) (dailyMealResponse, error) {
	resp := dailyMealResponse{
		ID:        menu.ID,
		Date:      menu.MenuDate.Format(dateLayout),
		Exists:    true,
		CreatedBy: menu.CreatedBy,
		CreatedAt: &menu.CreatedAt,
		UpdatedAt: &menu.UpdatedAt,
	}

	var err error
	if resp.Breakfast, err = h.buildSlot(ctx, menu.ID, enum.MealTypeBreakfast); err != nil {
		return resp, err
	}
	if resp.Lunch, err = h.buildSlot(ctx, menu.ID, enum.MealTypeLunch); err != nil {
		return resp, err
	}
	if resp.Dinner, err = h.buildSlot(ctx, menu.ID, enum.MealTypeDinner); err != nil {
		return resp, err
	}
	return resp, nil
}

// Get handles GET /api/daily-meals?date=YYYY-MM-DD. A missing or
// unparseable date falls back to today rather than erroring.
func (h *DailyMealHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		if parsed, err := time.Parse(dateLayout, s); err == nil {
			date = parsed
		}
	}
	date = service.NormalizeDate(date)

	menu, err := h.store.GetActiveMenuByDate(r.Context(), date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, emptyDailyMeal(date))
			return
		}
		log.Printf("ERROR: get daily meal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp, err := h.buildDailyMeal(r.Context(), menu)
	if err != nil {
		log.Printf("ERROR: build daily meal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Upsert handles POST /api/daily-meals. Re-posting the same date
// replaces the active schedule's slots in place.
func (h *DailyMealHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req upsertDailyMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid date (YYYY-MM-DD) is required"})
		return
	}

	menu, err := h.schedule.Upsert(r.Context(), service.UpsertScheduleRequest{
		Date:      date,
		Breakfast: service.SlotRequest{FoodItems: req.Breakfast.FoodItems, Curries: req.Breakfast.Curries},
		Lunch:     service.SlotRequest{FoodItems: req.Lunch.FoodItems, Curries: req.Lunch.Curries},
		Dinner:    service.SlotRequest{FoodItems: req.Dinner.FoodItems, Curries: req.Dinner.Curries},
		CreatedBy: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, service.ErrScheduleConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: upsert daily meal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp, err := h.buildDailyMeal(r.Context(), *menu)
	if err != nil {
		log.Printf("ERROR: build daily meal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/daily-meals/history, newest first.
func (h *DailyMealHandler) History(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r, 10)
	offset := (page - 1) * limit

	menus, err := h.store.ListActiveMenus(r.Context(), database.ListActiveMenusParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list daily meals: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountActiveMenus(r.Context())
	if err != nil {
		log.Printf("ERROR: count daily meals: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	dailyMeals := make([]dailyMealResponse, 0, len(menus))
	for _, menu := range menus {
		resp, err := h.buildDailyMeal(r.Context(), menu)
		if err != nil {
			log.Printf("ERROR: build daily meal: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		dailyMeals = append(dailyMeals, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dailyMeals": dailyMeals,
		"pagination": map[string]any{
			"currentPage":  page,
			"totalPages":   totalPages(total, limit),
			"totalItems":   total,
			"itemsPerPage": limit,
		},
	})
}

// Delete handles DELETE /api/daily-meals/{id}.
func (h *DailyMealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid daily meal ID"})
		return
	}

	if err := h.store.DeleteDailyMenu(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "daily meal not found"})
			return
		}
		log.Printf("ERROR: delete daily meal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "daily meal deleted successfully"})
}
