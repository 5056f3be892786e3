package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/enum"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/middleware"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var tokenPattern = regexp.MustCompile(`^#\d{5}$`)

// OrderQueryStore defines the database methods needed by order
// handlers beyond order placement. Satisfied by *database.Queries.
type OrderQueryStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByTokenAndUser(ctx context.Context, arg database.GetOrderByTokenAndUserParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrdersByUser(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error)
	CountOrdersByUser(ctx context.Context, arg database.CountOrdersByUserParams) (int64, error)
	ListAllOrders(ctx context.Context, arg database.ListAllOrdersParams) ([]database.Order, error)
	CountAllOrders(ctx context.Context, arg database.CountAllOrdersParams) (int64, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// OrderPlacer runs the order intake validation and persists the
// result. Satisfied by *service.OrderService.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store  OrderQueryStore
	orders OrderPlacer
}

func NewOrderHandler(store OrderQueryStore, orders OrderPlacer) *OrderHandler {
	return &OrderHandler{store: store, orders: orders}
}

// RegisterRoutes registers the authenticated order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/my-orders", h.MyOrders)
	r.Get("/orders/token/{token}", h.GetByToken)
	r.Patch("/orders/{orderId}/status", h.UpdateStatus)
}

// RegisterAdminRoutes registers the admin-only order endpoints.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders/admin/all", h.AdminList)
}

type createOrderItemRequest struct {
	FoodItemID string `json:"foodItemId"`
	Quantity   int32  `json:"quantity"`
	MealType   string `json:"mealType"`
}

type createOrderRequest struct {
	Items       []createOrderItemRequest `json:"items"`
	TimeSlot    string                   `json:"timeSlot"`
	TotalAmount float64                  `json:"totalAmount"`
	Token       string                   `json:"token"`
	Notes       string                   `json:"notes"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	FoodItemID uuid.UUID `json:"foodItemId"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Quantity   int32     `json:"quantity"`
	MealType   string    `json:"mealType"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"userId"`
	UserIndexNo string              `json:"userIndexNo"`
	Items       []orderItemResponse `json:"items"`
	TimeSlot    string              `json:"timeSlot"`
	TotalAmount string              `json:"totalAmount"`
	Token       string              `json:"token"`
	Status      string              `json:"status"`
	OrderDate   time.Time           `json:"orderDate"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		UserIndexNo: o.UserIndexNo,
		Items:       make([]orderItemResponse, len(items)),
		TimeSlot:    o.TimeSlot,
		TotalAmount: numericToString(o.TotalAmount),
		Token:       o.Token,
		Status:      o.Status,
		OrderDate:   o.OrderDate,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Notes.Valid {
		resp.Notes = o.Notes.String
	}
	for i, it := range items {
		resp.Items[i] = orderItemResponse{
			FoodItemID: it.FoodItemID,
			Name:       it.Name,
			Price:      numericToString(it.Price),
			Quantity:   it.Quantity,
			MealType:   it.MealType,
		}
	}
	return resp
}

func (h *OrderHandler) withItems(ctx context.Context, o database.Order) (orderResponse, error) {
	items, err := h.store.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return orderResponse{}, err
	}
	return toOrderResponse(o, items), nil
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.PlaceOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.PlaceOrderItem{
			FoodItemID: it.FoodItemID,
			Quantity:   it.Quantity,
			MealType:   it.MealType,
		}
	}

	result, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:      claims.UserID,
		Items:       items,
		TimeSlot:    req.TimeSlot,
		TotalAmount: decimal.NewFromFloat(req.TotalAmount),
		Token:       req.Token,
		Notes:       req.Notes,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "order placed successfully",
		"order":   toOrderResponse(result.Order, result.Items),
	})
}

// writeOrderError maps order service errors onto HTTP statuses. Item
// errors arrive wrapped with their line index, so match with errors.Is.
func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrMissingTimeSlot),
		errors.Is(err, service.ErrInvalidTotal),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidFoodItemID),
		errors.Is(err, service.ErrInvalidMealType),
		errors.Is(err, service.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrFoodItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrFoodItemUnavailable),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrTokenTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: place order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// MyOrders handles GET /api/orders/my-orders for the calling user.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	page, limit := parsePagination(r, 10)

	status := pgtype.Text{}
	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.IsValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), database.ListOrdersByUserParams{
		UserID: claims.UserID,
		Status: status,
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountOrdersByUser(r.Context(), database.CountOrdersByUserParams{
		UserID: claims.UserID,
		Status: status,
	})
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		or, err := h.withItems(r.Context(), o)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp = append(resp, or)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders":      resp,
		"totalPages":  totalPages(total, limit),
		"currentPage": page,
		"totalOrders": total,
	})
}

// GetByToken handles GET /api/orders/token/{token}. Lookup is scoped
// to the caller's own orders; someone else's token reads as not found.
func (h *OrderHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	// The leading '#' arrives percent-encoded; chi hands back the raw
	// segment.
	token, err := url.PathUnescape(chi.URLParam(r, "token"))
	if err != nil || !tokenPattern.MatchString(token) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid token format"})
		return
	}

	order, err := h.store.GetOrderByTokenAndUser(r.Context(), database.GetOrderByTokenAndUserParams{
		Token:  token,
		UserID: claims.UserID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order by token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp, err := h.withItems(r.Context(), order)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /api/orders/{orderId}/status. Admins may
// set any status; owners may only cancel while still pending. The
// actor's role comes from the database, not the token.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.IsValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	actor, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
			return
		}
		log.Printf("ERROR: get user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if actor.Role != enum.UserRoleAdmin {
		if order.UserID != actor.ID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
			return
		}
		if req.Status != enum.OrderStatusCancelled || order.Status != enum.OrderStatusPending {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "you can only cancel pending orders"})
			return
		}
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:     orderID,
		Status: req.Status,
	})
	if err != nil {
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp, err := h.withItems(r.Context(), updated)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "order status updated successfully",
		"order":   resp,
	})
}

// AdminList handles GET /api/orders/admin/all with optional filters.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r, 20)
	q := r.URL.Query()

	status := pgtype.Text{}
	if s := q.Get("status"); s != "" {
		if !enum.IsValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		status = pgtype.Text{String: s, Valid: true}
	}

	mealType := pgtype.Text{}
	if s := q.Get("mealType"); s != "" {
		if !enum.IsValidMealType(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid meal type"})
			return
		}
		mealType = pgtype.Text{String: s, Valid: true}
	}

	dayStart := pgtype.Timestamptz{}
	if s := q.Get("date"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, expected YYYY-MM-DD"})
			return
		}
		dayStart = pgtype.Timestamptz{Time: service.NormalizeDate(parsed), Valid: true}
	}

	search := pgtype.Text{}
	if s := q.Get("search"); s != "" {
		search = pgtype.Text{String: s, Valid: true}
	}

	filters := database.ListAllOrdersParams{
		Status:   status,
		MealType: mealType,
		DayStart: dayStart,
		Search:   search,
		Limit:    int32(limit),
		Offset:   int32((page - 1) * limit),
	}

	orders, err := h.store.ListAllOrders(r.Context(), filters)
	if err != nil {
		log.Printf("ERROR: list all orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountAllOrders(r.Context(), database.CountAllOrdersParams{
		Status:   status,
		MealType: mealType,
		DayStart: dayStart,
		Search:   search,
	})
	if err != nil {
		log.Printf("ERROR: count all orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		or, err := h.withItems(r.Context(), o)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp = append(resp, or)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders":      resp,
		"totalPages":  totalPages(total, limit),
		"currentPage": page,
		"totalOrders": total,
	})
}
