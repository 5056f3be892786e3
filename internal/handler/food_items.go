package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/enum"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// FoodItemStore defines the database methods needed by food item
// handlers. Satisfied by *database.Queries.
type FoodItemStore interface {
	ListFoodItems(ctx context.Context, available pgtype.Bool) ([]database.FoodItem, error)
	GetFoodItem(ctx context.Context, id uuid.UUID) (database.FoodItem, error)
	CountFoodItems(ctx context.Context) (int64, error)
	FoodItemNameExists(ctx context.Context, arg database.FoodItemNameExistsParams) (bool, error)
	CreateFoodItem(ctx context.Context, arg database.CreateFoodItemParams) (database.FoodItem, error)
	UpdateFoodItem(ctx context.Context, arg database.UpdateFoodItemParams) (database.FoodItem, error)
	SetFoodItemAvailability(ctx context.Context, arg database.SetFoodItemAvailabilityParams) (database.FoodItem, error)
	DeleteFoodItem(ctx context.Context, id uuid.UUID) error
}

// FoodItemHandler handles food item catalog endpoints.
type FoodItemHandler struct {
	store FoodItemStore
}

func NewFoodItemHandler(store FoodItemStore) *FoodItemHandler {
	return &FoodItemHandler{store: store}
}

// RegisterPublicRoutes registers the read endpoints.
func (h *FoodItemHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/food-items", h.List)
	r.Get("/food-items/{id}", h.Get)
}

// RegisterAdminRoutes registers the mutation endpoints; expected to be
// mounted behind RequireAdmin.
func (h *FoodItemHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/food-items", h.Create)
	r.Put("/food-items/{id}", h.Update)
	r.Patch("/food-items/{id}/availability", h.ToggleAvailability)
	r.Delete("/food-items/{id}", h.Delete)
}

// --- Request / Response types ---

type createFoodItemRequest struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
}

type updateFoodItemRequest struct {
	Name      *string  `json:"name"`
	Price     *float64 `json:"price"`
	Available *bool    `json:"available"`
}

type toggleAvailabilityRequest struct {
	Available *bool `json:"available"`
}

type foodItemResponse struct {
	ID        uuid.UUID `json:"id"`
	DisplayID string    `json:"displayId"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Available bool      `json:"available"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toFoodItemResponse(f database.FoodItem) foodItemResponse {
	return foodItemResponse{
		ID:        f.ID,
		DisplayID: f.DisplayID,
		Name:      f.Name,
		Price:     numericToString(f.Price),
		Available: f.Available,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// --- Handlers ---

// List handles GET /api/food-items, optionally filtered by ?available.
func (h *FoodItemHandler) List(w http.ResponseWriter, r *http.Request) {
	available := pgtype.Bool{}
	if s := r.URL.Query().Get("available"); s != "" {
		available = pgtype.Bool{Bool: s == "true", Valid: true}
	}

	items, err := h.store.ListFoodItems(r.Context(), available)
	if err != nil {
		log.Printf("ERROR: list food items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]foodItemResponse, len(items))
	for i, f := range items {
		resp[i] = toFoodItemResponse(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/food-items/{id}.
func (h *FoodItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid food item ID"})
		return
	}

	item, err := h.store.GetFoodItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "food item not found"})
			return
		}
		log.Printf("ERROR: get food item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toFoodItemResponse(item))
}

// Create handles POST /api/food-items.
func (h *FoodItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createFoodItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and price are required"})
		return
	}

	price := decimal.NewFromFloat(*req.Price)
	if !price.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be greater than 0"})
		return
	}

	taken, err := h.store.FoodItemNameExists(r.Context(), database.FoodItemNameExistsParams{
		Name:      name,
		ExcludeID: uuid.Nil,
	})
	if err != nil {
		log.Printf("ERROR: check food item name: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if taken {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "food item with this name already exists"})
		return
	}

	count, err := h.store.CountFoodItems(r.Context())
	if err != nil {
		log.Printf("ERROR: count food items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	item, err := h.store.CreateFoodItem(r.Context(), database.CreateFoodItemParams{
		DisplayID: fmt.Sprintf("%s%03d", enum.DisplayPrefixFood, count+1),
		Name:      name,
		Price:     decimalToNumeric(price),
		CreatedBy: claims.UserID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "food item with this name already exists"})
			return
		}
		log.Printf("ERROR: create food item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toFoodItemResponse(item))
}

// Update handles PUT /api/food-items/{id}. Omitted fields keep their
// current value.
func (h *FoodItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid food item ID"})
		return
	}

	var req updateFoodItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	current, err := h.store.GetFoodItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "food item not found"})
			return
		}
		log.Printf("ERROR: get food item for update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	name := current.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name cannot be empty"})
			return
		}
		taken, err := h.store.FoodItemNameExists(r.Context(), database.FoodItemNameExistsParams{
			Name:      name,
			ExcludeID: id,
		})
		if err != nil {
			log.Printf("ERROR: check food item name: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if taken {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "food item with this name already exists"})
			return
		}
	}

	price := current.Price
	if req.Price != nil {
		d := decimal.NewFromFloat(*req.Price)
		if !d.IsPositive() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be greater than 0"})
			return
		}
		price = decimalToNumeric(d)
	}

	available := current.Available
	if req.Available != nil {
		available = *req.Available
	}

	item, err := h.store.UpdateFoodItem(r.Context(), database.UpdateFoodItemParams{
		ID:        id,
		Name:      name,
		Price:     price,
		Available: available,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "food item with this name already exists"})
			return
		}
		log.Printf("ERROR: update food item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toFoodItemResponse(item))
}

// ToggleAvailability handles PATCH /api/food-items/{id}/availability.
// With no explicit value in the body, the flag flips.
func (h *FoodItemHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid food item ID"})
		return
	}

	var req toggleAvailabilityRequest
	if r.Body != nil {
		// An empty body means "flip"; a malformed one is still an error.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	current, err := h.store.GetFoodItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "food item not found"})
			return
		}
		log.Printf("ERROR: get food item for toggle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	next := !current.Available
	if req.Available != nil {
		next = *req.Available
	}

	item, err := h.store.SetFoodItemAvailability(r.Context(), database.SetFoodItemAvailabilityParams{
		ID:        id,
		Available: next,
	})
	if err != nil {
		log.Printf("ERROR: set food item availability: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toFoodItemResponse(item))
}

// Delete handles DELETE /api/food-items/{id}. Hard delete; daily menu
// references are left behind and filtered out at read time.
func (h *FoodItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid food item ID"})
		return
	}

	if err := h.store.DeleteFoodItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "food item not found"})
			return
		}
		log.Printf("ERROR: delete food item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "food item deleted successfully"})
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
