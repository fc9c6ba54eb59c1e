package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediserve-be/internal/cart"
	"mediserve-be/internal/logger"
	"mediserve-be/internal/medicine"
	"mediserve-be/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMedicineService struct {
	mock.Mock
}

func (m *MockMedicineService) ListMedicines(ctx context.Context) ([]medicine.Medicine, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]medicine.Medicine), args.Error(1)
}

func (m *MockMedicineService) GetMedicine(ctx context.Context, id uint) (*medicine.Medicine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*medicine.Medicine), args.Error(1)
}

func (m *MockMedicineService) RestockMedicine(ctx context.Context, id uint, amount int) (*medicine.Medicine, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*medicine.Medicine), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, params cart.AddItemParams) (*cart.Cart, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, params cart.RemoveItemParams) (*cart.Cart, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) ViewCart(ctx context.Context, userID uint) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, userID uint) (*order.CheckoutResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CheckoutResult), args.Error(1)
}

func (m *MockOrderService) ListHistory(ctx context.Context, userID uint, limit int) ([]order.Order, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListByStatus(ctx context.Context, status order.OrderStatus) ([]order.Order, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderDetail(ctx context.Context, userID, orderID uint, isAdmin bool) (*order.Order, error) {
	args := m.Called(ctx, userID, orderID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID uint, status order.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func setupRouter(medicineSvc medicine.Service, cartSvc cart.Service, orderSvc order.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(medicineSvc, cartSvc, orderSvc).RegisterRoutes(r)
	return r
}

func TestHandler_AddCartItem(t *testing.T) {
	t.Run("MissingUser", func(t *testing.T) {
		r := setupRouter(new(MockMedicineService), new(MockCartService), new(MockOrderService))

		body, _ := json.Marshal(addItemRequest{MedicineID: 7, Quantity: 3})
		req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		cartSvc := new(MockCartService)
		r := setupRouter(new(MockMedicineService), cartSvc, new(MockOrderService))

		cartSvc.On("AddItem", mock.Anything, mock.Anything).Return(nil, cart.ErrInvalidQuantity)

		body, _ := json.Marshal(addItemRequest{MedicineID: 7, Quantity: -1})
		req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
		req.Header.Set("X-User-ID", "1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Success", func(t *testing.T) {
		cartSvc := new(MockCartService)
		r := setupRouter(new(MockMedicineService), cartSvc, new(MockOrderService))

		note := "for grandma"
		view := &cart.Cart{
			OrderID: 42,
			UserID:  1,
			Total:   decimal.RequireFromString("30.00"),
			Items:   []cart.LineItem{{ID: 5, MedicineID: 7, Quantity: 3}},
		}
		cartSvc.On("AddItem", mock.Anything, cart.AddItemParams{
			UserID: 1, MedicineID: 7, Quantity: 3, Note: &note,
		}).Return(view, nil)

		body, _ := json.Marshal(addItemRequest{MedicineID: 7, Quantity: 3, Note: note})
		req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
		req.Header.Set("X-User-ID", "1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["empty"])
		assert.Equal(t, float64(42), resp["order_id"])
	})
}

func TestHandler_GetCart_Empty(t *testing.T) {
	cartSvc := new(MockCartService)
	r := setupRouter(new(MockMedicineService), cartSvc, new(MockOrderService))

	cartSvc.On("ViewCart", mock.Anything, uint(1)).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["empty"])
}

func TestHandler_GetCart_UserIDInContext(t *testing.T) {
	cartSvc := new(MockCartService)
	r := setupRouter(new(MockMedicineService), cartSvc, new(MockOrderService))

	withCaller := mock.MatchedBy(func(ctx context.Context) bool {
		id, ok := logger.UserIDFrom(ctx)
		return ok && id == uint(1)
	})
	cartSvc.On("ViewCart", withCaller, uint(1)).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cartSvc.AssertExpectations(t)
}

func TestHandler_RemoveCartItem_NotFound(t *testing.T) {
	cartSvc := new(MockCartService)
	r := setupRouter(new(MockMedicineService), cartSvc, new(MockOrderService))

	cartSvc.On("RemoveItem", mock.Anything, cart.RemoveItemParams{UserID: 1, OrderItemID: 5}).
		Return(nil, cart.ErrCartItemNotFound)

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/5", nil)
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Checkout(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		orderSvc := new(MockOrderService)
		r := setupRouter(new(MockMedicineService), new(MockCartService), orderSvc)

		orderSvc.On("Checkout", mock.Anything, uint(1)).Return(&order.CheckoutResult{
			OrderID: 42,
			Status:  order.StatusProcessing,
			Total:   decimal.RequireFromString("50.00"),
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-User-ID", "1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Processing", resp["status"])
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		orderSvc := new(MockOrderService)
		r := setupRouter(new(MockMedicineService), new(MockCartService), orderSvc)

		orderSvc.On("Checkout", mock.Anything, uint(1)).Return(nil, &order.InsufficientStockError{
			MedicineID: 7,
			Name:       "Paracetamol",
			Requested:  2,
			Available:  1,
		})

		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-User-ID", "1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Paracetamol", resp["medicine"])
		assert.Equal(t, float64(1), resp["available"])
	})

	t.Run("EmptyCart", func(t *testing.T) {
		orderSvc := new(MockOrderService)
		r := setupRouter(new(MockMedicineService), new(MockCartService), orderSvc)

		orderSvc.On("Checkout", mock.Anything, uint(1)).Return(nil, order.ErrEmptyCart)

		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-User-ID", "1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Conflict", func(t *testing.T) {
		orderSvc := new(MockOrderService)
		r := setupRouter(new(MockMedicineService), new(MockCartService), orderSvc)

		orderSvc.On("Checkout", mock.Anything, uint(1)).Return(nil, order.ErrCheckoutConflict)

		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-User-ID", "1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusConflict, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["retryable"])
	})
}

func TestHandler_ListMedicines(t *testing.T) {
	medicineSvc := new(MockMedicineService)
	r := setupRouter(medicineSvc, new(MockCartService), new(MockOrderService))

	medicineSvc.On("ListMedicines", mock.Anything).Return([]medicine.Medicine{
		{ID: 1, Name: "Amoxicillin", Dosage: "250mg"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/medicines", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Amoxicillin")
}

func TestHandler_UpdateOrderStatus_Invalid(t *testing.T) {
	orderSvc := new(MockOrderService)
	r := setupRouter(new(MockMedicineService), new(MockCartService), orderSvc)

	orderSvc.On("UpdateOrderStatus", mock.Anything, uint(42), order.OrderStatus("Pending")).
		Return(order.ErrInvalidStatus)

	body, _ := json.Marshal(updateStatusRequest{Status: "Pending"})
	req := httptest.NewRequest(http.MethodPut, "/management/orders/42/status", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
