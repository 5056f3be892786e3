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
)

// CurryStore defines the database methods needed by curry handlers.
// Satisfied by *database.Queries.
type CurryStore interface {
	ListCurries(ctx context.Context, available pgtype.Bool) ([]database.Curry, error)
	GetCurry(ctx context.Context, id uuid.UUID) (database.Curry, error)
	CountCurries(ctx context.Context) (int64, error)
	CurryNameExists(ctx context.Context, arg database.CurryNameExistsParams) (bool, error)
	CreateCurry(ctx context.Context, arg database.CreateCurryParams) (database.Curry, error)
	UpdateCurry(ctx context.Context, arg database.UpdateCurryParams) (database.Curry, error)
	SetCurryAvailability(ctx context.Context, arg database.SetCurryAvailabilityParams) (database.Curry, error)
	DeleteCurry(ctx context.Context, id uuid.UUID) error
}

// CurryHandler handles curry catalog endpoints. Curries carry no price
// of their own; they accompany priced food items on the daily menu.
type CurryHandler struct {
	store CurryStore
}

func NewCurryHandler(store CurryStore) *CurryHandler {
	return &CurryHandler{store: store}
}

func (h *CurryHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/curries", h.List)
	r.Get("/curries/{id}", h.Get)
}

func (h *CurryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/curries", h.Create)
	r.Put("/curries/{id}", h.Update)
	r.Patch("/curries/{id}/availability", h.ToggleAvailability)
	r.Delete("/curries/{id}", h.Delete)
}

type createCurryRequest struct {
	Name string `json:"name"`
}

type updateCurryRequest struct {
	Name      *string `json:"name"`
	Available *bool   `json:"available"`
}

type curryResponse struct {
	ID        uuid.UUID `json:"id"`
	DisplayID string    `json:"displayId"`
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCurryResponse(c database.Curry) curryResponse {
	return curryResponse{
		ID:        c.ID,
		DisplayID: c.DisplayID,
		Name:      c.Name,
		Available: c.Available,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// List handles GET /api/curries, optionally filtered by ?available.
func (h *CurryHandler) List(w http.ResponseWriter, r *http.Request) {
	available := pgtype.Bool{}
	if s := r.URL.Query().Get("available"); s != "" {
		available = pgtype.Bool{Bool: s == "true", Valid: true}
	}

	curries, err := h.store.ListCurries(r.Context(), available)
	if err != nil {
		log.Printf("ERROR: list curries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]curryResponse, len(curries))
	for i, c := range curries {
		resp[i] = toCurryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/curries/{id}.
func (h *CurryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid curry ID"})
		return
	}

	curry, err := h.store.GetCurry(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "curry not found"})
			return
		}
		log.Printf("ERROR: get curry: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCurryResponse(curry))
}

// Create handles POST /api/curries.
func (h *CurryHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createCurryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	taken, err := h.store.CurryNameExists(r.Context(), database.CurryNameExistsParams{
		Name:      name,
		ExcludeID: uuid.Nil,
	})
	if err != nil {
		log.Printf("ERROR: check curry name: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if taken {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "curry with this name already exists"})
		return
	}

	count, err := h.store.CountCurries(r.Context())
	if err != nil {
		log.Printf("ERROR: count curries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	curry, err := h.store.CreateCurry(r.Context(), database.CreateCurryParams{
		DisplayID: fmt.Sprintf("%s%03d", enum.DisplayPrefixCurry, count+1),
		Name:      name,
		CreatedBy: claims.UserID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "curry with this name already exists"})
			return
		}
		log.Printf("ERROR: create curry: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCurryResponse(curry))
}

// Update handles PUT /api/curries/{id}.
func (h *CurryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid curry ID"})
		return
	}

	var req updateCurryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	current, err := h.store.GetCurry(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "curry not found"})
			return
		}
		log.Printf("ERROR: get curry for update: %v", err)
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
		taken, err := h.store.CurryNameExists(r.Context(), database.CurryNameExistsParams{
			Name:      name,
			ExcludeID: id,
		})
		if err != nil {
			log.Printf("ERROR: check curry name: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if taken {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "curry with this name already exists"})
			return
		}
	}

	available := current.Available
	if req.Available != nil {
		available = *req.Available
	}

	curry, err := h.store.UpdateCurry(r.Context(), database.UpdateCurryParams{
		ID:        id,
		Name:      name,
		Available: available,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "curry with this name already exists"})
			return
		}
		log.Printf("ERROR: update curry: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCurryResponse(curry))
}

// ToggleAvailability handles PATCH /api/curries/{id}/availability.
func (h *CurryHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid curry ID"})
		return
	}

	var req toggleAvailabilityRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	current, err := h.store.GetCurry(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "curry not found"})
			return
		}
		log.Printf("ERROR: get curry for toggle: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	next := !current.Available
	if req.Available != nil {
		next = *req.Available
	}

	curry, err := h.store.SetCurryAvailability(r.Context(), database.SetCurryAvailabilityParams{
		ID:        id,
		Available: next,
	})
	if err != nil {
		log.Printf("ERROR: set curry availability: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCurryResponse(curry))
}

// Delete handles DELETE /api/curries/{id}.
func (h *CurryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid curry ID"})
		return
	}

	if err := h.store.DeleteCurry(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "curry not found"})
			return
		}
		log.Printf("ERROR: delete curry: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "curry deleted successfully"})
}
