package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/auth"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/handler"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/middleware"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const testSecret = "test-secret"

// --- Shared test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return buf
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func bearerToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

// mockUserLookup satisfies middleware.UserStore for admin gating.
type mockUserLookup struct {
	users map[uuid.UUID]database.User
}

func (m *mockUserLookup) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return database.User{}, pgx.ErrNoRows
}

// --- Mock OrderPlacer ---

type mockOrderPlacer struct {
	placeFn func(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
}

func (m *mockOrderPlacer) PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error) {
	return m.placeFn(ctx, req)
}

// --- Mock OrderQueryStore ---

type mockOrderQueryStore struct {
	getOrderFn               func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderByTokenAndUserFn func(ctx context.Context, arg database.GetOrderByTokenAndUserParams) (database.Order, error)
	listOrderItemsByOrderFn  func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listOrdersByUserFn       func(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error)
	countOrdersByUserFn      func(ctx context.Context, arg database.CountOrdersByUserParams) (int64, error)
	listAllOrdersFn          func(ctx context.Context, arg database.ListAllOrdersParams) ([]database.Order, error)
	countAllOrdersFn         func(ctx context.Context, arg database.CountAllOrdersParams) (int64, error)
	updateOrderStatusFn      func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	getUserByIDFn            func(ctx context.Context, id uuid.UUID) (database.User, error)
}

func (m *mockOrderQueryStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}
func (m *mockOrderQueryStore) GetOrderByTokenAndUser(ctx context.Context, arg database.GetOrderByTokenAndUserParams) (database.Order, error) {
	if m.getOrderByTokenAndUserFn != nil {
		return m.getOrderByTokenAndUserFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}
func (m *mockOrderQueryStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listOrderItemsByOrderFn != nil {
		return m.listOrderItemsByOrderFn(ctx, orderID)
	}
	return []database.OrderItem{}, nil
}
func (m *mockOrderQueryStore) ListOrdersByUser(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error) {
	if m.listOrdersByUserFn != nil {
		return m.listOrdersByUserFn(ctx, arg)
	}
	return []database.Order{}, nil
}
func (m *mockOrderQueryStore) CountOrdersByUser(ctx context.Context, arg database.CountOrdersByUserParams) (int64, error) {
	if m.countOrdersByUserFn != nil {
		return m.countOrdersByUserFn(ctx, arg)
	}
	return 0, nil
}
func (m *mockOrderQueryStore) ListAllOrders(ctx context.Context, arg database.ListAllOrdersParams) ([]database.Order, error) {
	if m.listAllOrdersFn != nil {
		return m.listAllOrdersFn(ctx, arg)
	}
	return []database.Order{}, nil
}
func (m *mockOrderQueryStore) CountAllOrders(ctx context.Context, arg database.CountAllOrdersParams) (int64, error) {
	if m.countAllOrdersFn != nil {
		return m.countAllOrdersFn(ctx, arg)
	}
	return 0, nil
}
func (m *mockOrderQueryStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}
func (m *mockOrderQueryStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

// newOrdersRouter mirrors the production wiring: authenticated order
// routes plus the admin listing behind RequireAdmin.
func newOrdersRouter(store *mockOrderQueryStore, placer handler.OrderPlacer, admins *mockUserLookup) chi.Router {
	h := handler.NewOrderHandler(store, placer)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(admins))
			h.RegisterAdminRoutes(r)
		})
	})
	return r
}

func noAdmins() *mockUserLookup {
	return &mockUserLookup{users: map[uuid.UUID]database.User{}}
}

// --- Tests ---

func TestCreateOrder_Success(t *testing.T) {
	userID := uuid.New()
	foodItemID := uuid.New()
	orderID := uuid.New()

	placer := &mockOrderPlacer{
		placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error) {
			if req.UserID != userID {
				t.Errorf("user ID: got %v, want the token's %v", req.UserID, userID)
			}
			if req.Token != "#12345" {
				t.Errorf("token: got %q", req.Token)
			}
			if !req.TotalAmount.Equal(req.TotalAmount.Round(2)) {
				t.Errorf("total: got %v", req.TotalAmount)
			}
			return &service.PlaceOrderResult{
				Order: database.Order{
					ID:          orderID,
					UserID:      userID,
					UserIndexNo: "190401X",
					TimeSlot:    req.TimeSlot,
					TotalAmount: makeNumeric("700.00"),
					Token:       req.Token,
					Status:      "pending",
				},
				Items: []database.OrderItem{
					{OrderID: orderID, FoodItemID: foodItemID, Name: "Rice & Curry", Price: makeNumeric("350.00"), Quantity: 2, MealType: "lunch"},
				},
			}, nil
		},
	}
	r := newOrdersRouter(&mockOrderQueryStore{}, placer, noAdmins())

	body := jsonBody(t, map[string]any{
		"items": []map[string]any{
			{"foodItemId": foodItemID.String(), "quantity": 2, "mealType": "lunch"},
		},
		"timeSlot":    "12:00-12:30",
		"totalAmount": 700.00,
		"token":       "#12345",
	})
	req := httptest.NewRequest("POST", "/orders", body)
	req.Header.Set("Authorization", bearerToken(t, userID, "student"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp struct {
		Order struct {
			Token       string `json:"token"`
			Status      string `json:"status"`
			TotalAmount string `json:"totalAmount"`
			Items       []struct {
				Name     string `json:"name"`
				Quantity int32  `json:"quantity"`
			} `json:"items"`
		} `json:"order"`
	}
	decodeBody(t, rr, &resp)
	if resp.Order.Token != "#12345" {
		t.Errorf("token: got %q", resp.Order.Token)
	}
	if resp.Order.Status != "pending" {
		t.Errorf("status: got %q", resp.Order.Status)
	}
	if resp.Order.TotalAmount != "700.00" {
		t.Errorf("total: got %q", resp.Order.TotalAmount)
	}
	if len(resp.Order.Items) != 1 || resp.Order.Items[0].Name != "Rice & Curry" {
		t.Errorf("items: got %+v", resp.Order.Items)
	}
}

func TestCreateOrder_RequiresAuth(t *testing.T) {
	r := newOrdersRouter(&mockOrderQueryStore{}, &mockOrderPlacer{}, noAdmins())

	req := httptest.NewRequest("POST", "/orders", jsonBody(t, map[string]any{}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid token", service.ErrInvalidToken, http.StatusBadRequest},
		{"empty items", service.ErrEmptyItems, http.StatusBadRequest},
		{"user not found", service.ErrUserNotFound, http.StatusNotFound},
		{"item not found", service.ErrFoodItemNotFound, http.StatusNotFound},
		{"item unavailable", service.ErrFoodItemUnavailable, http.StatusConflict},
		{"amount mismatch", service.ErrAmountMismatch, http.StatusConflict},
		{"token taken", service.ErrTokenTaken, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placer := &mockOrderPlacer{
				placeFn: func(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error) {
					return nil, tt.err
				},
			}
			r := newOrdersRouter(&mockOrderQueryStore{}, placer, noAdmins())

			req := httptest.NewRequest("POST", "/orders", jsonBody(t, map[string]any{}))
			req.Header.Set("Authorization", bearerToken(t, uuid.New(), "student"))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestMyOrders_ScopedToCaller(t *testing.T) {
	userID := uuid.New()
	store := &mockOrderQueryStore{
		listOrdersByUserFn: func(ctx context.Context, arg database.ListOrdersByUserParams) ([]database.Order, error) {
			if arg.UserID != userID {
				t.Errorf("listed orders for %v, want %v", arg.UserID, userID)
			}
			return []database.Order{
				{ID: uuid.New(), UserID: userID, Token: "#11111", Status: "pending", TotalAmount: makeNumeric("350.00")},
				{ID: uuid.New(), UserID: userID, Token: "#22222", Status: "ready", TotalAmount: makeNumeric("500.00")},
			}, nil
		},
		countOrdersByUserFn: func(ctx context.Context, arg database.CountOrdersByUserParams) (int64, error) {
			return 12, nil
		},
	}
	r := newOrdersRouter(store, &mockOrderPlacer{}, noAdmins())

	req := httptest.NewRequest("GET", "/orders/my-orders?page=2&limit=2", nil)
	req.Header.Set("Authorization", bearerToken(t, userID, "student"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp struct {
		Orders      []json.RawMessage `json:"orders"`
		TotalPages  int               `json:"totalPages"`
		CurrentPage int               `json:"currentPage"`
		TotalOrders int64             `json:"totalOrders"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Orders) != 2 {
		t.Errorf("orders: got %d, want 2", len(resp.Orders))
	}
	if resp.TotalPages != 6 || resp.CurrentPage != 2 || resp.TotalOrders != 12 {
		t.Errorf("pagination: got %+v", resp)
	}
}

func TestMyOrders_RejectsBadStatusFilter(t *testing.T) {
	r := newOrdersRouter(&mockOrderQueryStore{}, &mockOrderPlacer{}, noAdmins())

	req := httptest.NewRequest("GET", "/orders/my-orders?status=eaten", nil)
	req.Header.Set("Authorization", bearerToken(t, uuid.New(), "student"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetOrderByToken(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	store := &mockOrderQueryStore{
		getOrderByTokenAndUserFn: func(ctx context.Context, arg database.GetOrderByTokenAndUserParams) (database.Order, error) {
			if arg.Token == "#12345" && arg.UserID == userID {
				return database.Order{ID: orderID, UserID: userID, Token: arg.Token, Status: "ready", TotalAmount: makeNumeric("700.00")}, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
	}
	r := newOrdersRouter(store, &mockOrderPlacer{}, noAdmins())

	t.Run("own order", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders/token/%2312345", nil)
		req.Header.Set("Authorization", bearerToken(t, userID, "student"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d (body %s)", rr.Code, rr.Body.String())
		}
		var resp struct {
			Token  string `json:"token"`
			Status string `json:"status"`
		}
		decodeBody(t, rr, &resp)
		if resp.Token != "#12345" || resp.Status != "ready" {
			t.Errorf("got %+v", resp)
		}
	})

	t.Run("someone else's token reads as not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders/token/%2312345", nil)
		req.Header.Set("Authorization", bearerToken(t, uuid.New(), "student"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders/token/12345", nil)
		req.Header.Set("Authorization", bearerToken(t, userID, "student"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	ownerID := uuid.New()
	adminID := uuid.New()
	strangerID := uuid.New()
	orderID := uuid.New()

	newStore := func(orderStatus string) *mockOrderQueryStore {
		return &mockOrderQueryStore{
			getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
				if id == orderID {
					return database.Order{ID: orderID, UserID: ownerID, Status: orderStatus, TotalAmount: makeNumeric("350.00")}, nil
				}
				return database.Order{}, pgx.ErrNoRows
			},
			getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
				switch id {
				case ownerID:
					return database.User{ID: ownerID, Role: "student"}, nil
				case adminID:
					return database.User{ID: adminID, Role: "admin"}, nil
				case strangerID:
					return database.User{ID: strangerID, Role: "student"}, nil
				}
				return database.User{}, pgx.ErrNoRows
			},
			updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
				return database.Order{ID: arg.ID, UserID: ownerID, Status: arg.Status, TotalAmount: makeNumeric("350.00")}, nil
			},
		}
	}

	patch := func(t *testing.T, store *mockOrderQueryStore, actorID uuid.UUID, status string) *httptest.ResponseRecorder {
		t.Helper()
		r := newOrdersRouter(store, &mockOrderPlacer{}, noAdmins())
		req := httptest.NewRequest("PATCH", "/orders/"+orderID.String()+"/status", jsonBody(t, map[string]string{"status": status}))
		req.Header.Set("Authorization", bearerToken(t, actorID, "student"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	t.Run("owner cancels pending order", func(t *testing.T) {
		rr := patch(t, newStore("pending"), ownerID, "cancelled")
		if rr.Code != http.StatusOK {
			t.Errorf("status: got %d (body %s)", rr.Code, rr.Body.String())
		}
	})

	t.Run("owner cannot cancel once preparing", func(t *testing.T) {
		rr := patch(t, newStore("preparing"), ownerID, "cancelled")
		if rr.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("owner cannot advance status", func(t *testing.T) {
		rr := patch(t, newStore("pending"), ownerID, "ready")
		if rr.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("stranger denied", func(t *testing.T) {
		rr := patch(t, newStore("pending"), strangerID, "cancelled")
		if rr.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("admin sets any status", func(t *testing.T) {
		rr := patch(t, newStore("preparing"), adminID, "ready")
		if rr.Code != http.StatusOK {
			t.Errorf("status: got %d (body %s)", rr.Code, rr.Body.String())
		}
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		rr := patch(t, newStore("pending"), adminID, "eaten")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("missing order", func(t *testing.T) {
		store := newStore("pending")
		store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		}
		rr := patch(t, store, adminID, "ready")
		if rr.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
		}
	})
}

func TestAdminListOrders(t *testing.T) {
	adminID := uuid.New()
	studentID := uuid.New()
	admins := &mockUserLookup{users: map[uuid.UUID]database.User{
		adminID:   {ID: adminID, Role: "admin"},
		studentID: {ID: studentID, Role: "student"},
	}}

	var captured database.ListAllOrdersParams
	store := &mockOrderQueryStore{
		listAllOrdersFn: func(ctx context.Context, arg database.ListAllOrdersParams) ([]database.Order, error) {
			captured = arg
			return []database.Order{
				{ID: uuid.New(), Token: "#33333", Status: "preparing", TotalAmount: makeNumeric("900.00")},
			}, nil
		},
		countAllOrdersFn: func(ctx context.Context, arg database.CountAllOrdersParams) (int64, error) {
			return 1, nil
		},
	}
	r := newOrdersRouter(store, &mockOrderPlacer{}, admins)

	t.Run("student denied", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders/admin/all", nil)
		req.Header.Set("Authorization", bearerToken(t, studentID, "student"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("admin with filters", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders/admin/all?status=preparing&mealType=lunch&date=2026-03-14&search=190401", nil)
		req.Header.Set("Authorization", bearerToken(t, adminID, "admin"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status: got %d (body %s)", rr.Code, rr.Body.String())
		}
		if !captured.Status.Valid || captured.Status.String != "preparing" {
			t.Errorf("status filter: got %+v", captured.Status)
		}
		if !captured.MealType.Valid || captured.MealType.String != "lunch" {
			t.Errorf("meal type filter: got %+v", captured.MealType)
		}
		if !captured.DayStart.Valid {
			t.Error("expected day filter to be set")
		}
		if !captured.Search.Valid || captured.Search.String != "190401" {
			t.Errorf("search filter: got %+v", captured.Search)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders/admin/all?date=14-03-2026", nil)
		req.Header.Set("Authorization", bearerToken(t, adminID, "admin"))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})
}
