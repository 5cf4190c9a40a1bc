package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marcodena/storefront/internal/api/handlers"
	appErrors "github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/models"
	service "github.com/marcodena/storefront/internal/services"
	"github.com/marcodena/storefront/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupOrderTest() (*mockOrderRepo, *mockCartRepo, *mockProductRepo, *handlers.OrderHandler) {
	orderRepo := &mockOrderRepo{}
	cartRepo := &mockCartRepo{}
	productRepo := &mockProductRepo{}
	svc := service.NewOrderService(orderRepo, cartRepo, productRepo, service.NewStockGuard(), nil)

	return orderRepo, cartRepo, productRepo, handlers.NewOrderHandler(svc)
}

func checkoutBody(t *testing.T) *bytes.Buffer {
	t.Helper()

	body, err := json.Marshal(models.CheckoutRequest{
		FirstName:     "Giulia",
		LastName:      "Bianchi",
		Email:         "giulia@example.com",
		Address:       "Via Roma 1",
		PostalCode:    "20121",
		City:          "Milano",
		PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)

	return bytes.NewBuffer(body)
}

func cartWithLine() *models.Cart {
	cart := models.NewCart(testSessionID)
	cart.Lines["7"] = models.CartLine{Quantity: 2, UnitPrice: "24.50"}

	return cart
}

func TestCheckoutHandler(t *testing.T) {
	t.Run("Success - Guest Checkout", func(t *testing.T) {
		// Arrange
		orderRepo, cartRepo, productRepo, handler := setupOrderTest()

		req := testutils.CreateTestRequestWithSession("POST", "/api/v1/checkout", checkoutBody(t), testSessionID, nil)
		recorder := httptest.NewRecorder()

		cartRepo.On("Get", mock.Anything, testSessionID).Return(cartWithLine(), nil)
		productRepo.On("GetProductByID", mock.Anything, int64(7)).Return(cartTestProduct(10), nil)
		orderRepo.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()
		cartRepo.On("Delete", mock.Anything, testSessionID).Return(nil).Once()

		// Act
		handler.Checkout()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusCreated, recorder.Code)

		var resp struct {
			Success bool         `json:"success"`
			Data    models.Order `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, models.OrderStatusPending, resp.Data.Status)
		assert.Nil(t, resp.Data.UserID)
		orderRepo.AssertExpectations(t)
		cartRepo.AssertExpectations(t)
	})

	t.Run("Success - Authenticated checkout attaches the user", func(t *testing.T) {
		// Arrange
		orderRepo, cartRepo, productRepo, handler := setupOrderTest()

		userID := uuid.New()
		req := testutils.CreateTestRequestWithUser("POST", "/api/v1/checkout", checkoutBody(t), testSessionID, userID, nil)
		recorder := httptest.NewRecorder()

		cartRepo.On("Get", mock.Anything, testSessionID).Return(cartWithLine(), nil)
		productRepo.On("GetProductByID", mock.Anything, int64(7)).Return(cartTestProduct(10), nil)
		orderRepo.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Once()
		cartRepo.On("Delete", mock.Anything, testSessionID).Return(nil).Once()

		// Act
		handler.Checkout()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusCreated, recorder.Code)

		var resp struct {
			Success bool         `json:"success"`
			Data    models.Order `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data.UserID)
		assert.Equal(t, userID, *resp.Data.UserID)
	})

	t.Run("Failure - Empty Cart", func(t *testing.T) {
		// Arrange
		orderRepo, cartRepo, _, handler := setupOrderTest()

		req := testutils.CreateTestRequestWithSession("POST", "/api/v1/checkout", checkoutBody(t), testSessionID, nil)
		recorder := httptest.NewRecorder()

		cartRepo.On("Get", mock.Anything, testSessionID).Return(models.NewCart(testSessionID), nil)

		// Act
		handler.Checkout()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)

		resp := decodeResponse(t, recorder)
		assert.Equal(t, appErrors.ErrCodeCartEmpty, resp.Error.Code)
		orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Insufficient stock at checkout", func(t *testing.T) {
		// Arrange
		orderRepo, cartRepo, productRepo, handler := setupOrderTest()

		req := testutils.CreateTestRequestWithSession("POST", "/api/v1/checkout", checkoutBody(t), testSessionID, nil)
		recorder := httptest.NewRecorder()

		cartRepo.On("Get", mock.Anything, testSessionID).Return(cartWithLine(), nil)
		productRepo.On("GetProductByID", mock.Anything, int64(7)).Return(cartTestProduct(1), nil)

		// Act
		handler.Checkout()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusConflict, recorder.Code)

		resp := decodeResponse(t, recorder)
		assert.Equal(t, appErrors.ErrCodeInsufficientStock, resp.Error.Code)
		orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Validation rejects missing shipping fields", func(t *testing.T) {
		// Arrange
		_, _, _, handler := setupOrderTest()

		body, _ := json.Marshal(models.CheckoutRequest{FirstName: "Giulia"})
		req := testutils.CreateTestRequestWithSession("POST", "/api/v1/checkout", bytes.NewBuffer(body), testSessionID, nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.Checkout()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetOrderHandler(t *testing.T) {
	t.Run("Success - Guest order by id alone", func(t *testing.T) {
		// Arrange
		orderRepo, _, _, handler := setupOrderTest()

		orderID := uuid.New()
		order := &models.Order{ID: orderID, Status: models.OrderStatusPending}

		req := testutils.CreateTestRequestWithSession("GET", "/api/v1/orders/"+orderID.String(), nil, testSessionID, map[string]string{"id": orderID.String()})
		recorder := httptest.NewRecorder()

		orderRepo.On("GetOrderByID", mock.Anything, orderID).Return(order, nil).Once()

		// Act
		handler.GetOrder()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - Owned order hidden from other users", func(t *testing.T) {
		// Arrange
		orderRepo, _, _, handler := setupOrderTest()

		orderID := uuid.New()
		ownerID := uuid.New()
		order := &models.Order{ID: orderID, UserID: &ownerID, Status: models.OrderStatusPending}

		req := testutils.CreateTestRequestWithUser("GET", "/api/v1/orders/"+orderID.String(), nil, testSessionID, uuid.New(), map[string]string{"id": orderID.String()})
		recorder := httptest.NewRecorder()

		orderRepo.On("GetOrderByID", mock.Anything, orderID).Return(order, nil).Once()

		// Act
		handler.GetOrder()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("Failure - Owned order hidden from guests", func(t *testing.T) {
		// Arrange
		orderRepo, _, _, handler := setupOrderTest()

		orderID := uuid.New()
		ownerID := uuid.New()
		order := &models.Order{ID: orderID, UserID: &ownerID, Status: models.OrderStatusPending}

		req := testutils.CreateTestRequestWithSession("GET", "/api/v1/orders/"+orderID.String(), nil, testSessionID, map[string]string{"id": orderID.String()})
		recorder := httptest.NewRecorder()

		orderRepo.On("GetOrderByID", mock.Anything, orderID).Return(order, nil).Once()

		// Act
		handler.GetOrder()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestListOrdersHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		orderRepo, _, _, handler := setupOrderTest()

		userID := uuid.New()
		req := testutils.CreateTestRequestWithUser("GET", "/api/v1/orders?page=2&pageSize=5", nil, testSessionID, userID, nil)
		recorder := httptest.NewRecorder()

		orderRepo.On("ListOrdersByUser", mock.Anything, userID, 2, 5).
			Return([]models.Order{{ID: uuid.New(), UserID: &userID}}, 11, nil).Once()

		// Act
		handler.ListOrders()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Total    int `json:"total"`
				Page     int `json:"page"`
				PageSize int `json:"pageSize"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, 11, resp.Data.Total)
		assert.Equal(t, 2, resp.Data.Page)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Failure - Unauthenticated", func(t *testing.T) {
		// Arrange
		_, _, _, handler := setupOrderTest()

		req := testutils.CreateTestRequestWithSession("GET", "/api/v1/orders", nil, testSessionID, nil)
		recorder := httptest.NewRecorder()

		// Act
		handler.ListOrders()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	t.Run("Failure - Invalid transition", func(t *testing.T) {
		// Arrange
		orderRepo, _, _, handler := setupOrderTest()

		orderID := uuid.New()
		order := &models.Order{ID: orderID, Status: models.OrderStatusDelivered}

		body, _ := json.Marshal(models.UpdateOrderStatusRequest{Status: models.OrderStatusProcessing})
		req := testutils.CreateTestRequestWithSession("PATCH", "/api/v1/orders/"+orderID.String()+"/status", bytes.NewBuffer(body), testSessionID, map[string]string{"id": orderID.String()})
		recorder := httptest.NewRecorder()

		orderRepo.On("GetOrderByID", mock.Anything, orderID).Return(order, nil).Once()

		// Act
		handler.UpdateOrderStatus()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusConflict, recorder.Code)

		resp := decodeResponse(t, recorder)
		assert.Equal(t, appErrors.ErrCodeInvalidTransition, resp.Error.Code)
		orderRepo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		// Arrange
		orderRepo, _, _, handler := setupOrderTest()

		orderID := uuid.New()
		order := &models.Order{ID: orderID, Status: models.OrderStatusPending}

		body, _ := json.Marshal(models.UpdateOrderStatusRequest{Status: models.OrderStatusProcessing})
		req := testutils.CreateTestRequestWithSession("PATCH", "/api/v1/orders/"+orderID.String()+"/status", bytes.NewBuffer(body), testSessionID, map[string]string{"id": orderID.String()})
		recorder := httptest.NewRecorder()

		orderRepo.On("GetOrderByID", mock.Anything, orderID).Return(order, nil).Once()
		orderRepo.On("UpdateOrderStatus", mock.Anything, orderID, models.OrderStatusProcessing).Return(nil).Once()

		// Act
		handler.UpdateOrderStatus()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
		orderRepo.AssertExpectations(t)
	})
}

func TestMarkPaidHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		orderRepo, _, _, handler := setupOrderTest()

		orderID := uuid.New()
		order := &models.Order{ID: orderID, Status: models.OrderStatusPending, Paid: false}

		body := bytes.NewBufferString(`{"paid": true}`)
		req := testutils.CreateTestRequestWithSession("PATCH", "/api/v1/orders/"+orderID.String()+"/paid", body, testSessionID, map[string]string{"id": orderID.String()})
		recorder := httptest.NewRecorder()

		orderRepo.On("GetOrderByID", mock.Anything, orderID).Return(order, nil).Once()
		orderRepo.On("UpdatePaid", mock.Anything, orderID, true).Return(nil).Once()

		// Act
		handler.MarkPaid()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
		orderRepo.AssertExpectations(t)
	})
}
