package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/marcodena/storefront/internal/api/middleware"
	"github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/models"
	service "github.com/marcodena/storefront/internal/services"
	"github.com/marcodena/storefront/internal/utils"
	"github.com/marcodena/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orderService *service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: validator.New()}
}

// Checkout converts the visitor's cart into an order. Works for guests;
// when a bearer token is present the order is attached to the account.
func (h *OrderHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		sessionID := middleware.SessionFromContext(r.Context())
		if sessionID == "" {
			logger.Warn("Checkout without session")
			response.Error(w, errors.BadRequestError("Session is required"))
			return
		}

		var userID *uuid.UUID
		if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
			userID = &claims.UserID
			logger = logger.With(slog.String("userId", claims.UserID.String()))
		}

		var req models.CheckoutRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid checkout input")
			return
		}

		order, err := h.orderService.Checkout(r.Context(), sessionID, userID, &req)
		if err != nil {
			logger.Warn("Checkout failed", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order created successfully", slog.String("orderId", order.ID.String()))
		response.Success(w, http.StatusCreated, order)
	}
}

// GetOrder retrieves one order. Guest orders are looked up by id alone;
// orders owned by an account are only visible to that account.
func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseUUID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger = logger.With(slog.String("orderId", id.String()))

		order, err := h.orderService.GetOrderByID(r.Context(), id)
		if err != nil {
			logger.Error("Failed to get order", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		if order.UserID != nil {
			claims := middleware.ClaimsFromContext(r.Context())
			if claims == nil || claims.UserID != *order.UserID {
				logger.Warn("Attempted to access another user's order")
				response.Error(w, errors.ForbiddenError("You don't have permission to access this order"))
				return
			}
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			logger.Warn("Unauthorized order list attempt: missing user claims")
			response.Error(w, errors.UnauthorizedError("Authentication required"))
			return
		}

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize"))
		if err != nil || pageSize < 1 || pageSize > 100 {
			pageSize = 10
		}

		orders, total, err := h.orderService.ListOrdersByUser(r.Context(), claims.UserID, page, pageSize)
		if err != nil {
			logger.Error("Failed to list orders", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Orders listed successfully", slog.Int("count", len(orders)), slog.Int("total", total))
		response.Success(w, http.StatusOK, models.PaginatedResponse{
			Data:     orders,
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		})
	}
}

func (h *OrderHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseUUID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger = logger.With(slog.String("orderId", id.String()))

		var req models.UpdateOrderStatusRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid update order status input")
			return
		}

		order, err := h.orderService.UpdateOrderStatus(r.Context(), id, req.Status)
		if err != nil {
			logger.Warn("Failed to update order status", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order status updated successfully", slog.String("newStatus", string(req.Status)))
		response.Success(w, http.StatusOK, order)
	}
}

// MarkPaid flips the paid flag independently of status.
func (h *OrderHandler) MarkPaid() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseUUID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		var req struct {
			Paid bool `json:"paid"`
		}
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			response.WriteJson(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		order, err := h.orderService.MarkPaid(r.Context(), id, req.Paid)
		if err != nil {
			logger.Error("Failed to update paid flag", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order paid flag updated", slog.String("orderId", id.String()), slog.Bool("paid", req.Paid))
		response.Success(w, http.StatusOK, order)
	}
}
