package handlers

import (
	"log/slog"
	"net/http"

	"github.com/marcodena/storefront/internal/api/middleware"
	"github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/models"
	service "github.com/marcodena/storefront/internal/services"
	"github.com/marcodena/storefront/internal/utils"
	"github.com/marcodena/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type CartHandler struct {
	cartService *service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: validator.New()}
}

func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		sessionID := middleware.SessionFromContext(r.Context())
		if sessionID == "" {
			logger.Warn("Cart access without session")
			response.Error(w, errors.BadRequestError("Session is required"))
			return
		}

		cart, err := h.cartService.GetCart(r.Context(), sessionID)
		if err != nil {
			logger.Error("Failed to get cart", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// AddItem adds a quantity of a product to the cart, or replaces the
// line's quantity when the override flag is set.
func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		sessionID := middleware.SessionFromContext(r.Context())
		if sessionID == "" {
			logger.Warn("Cart mutation without session")
			response.Error(w, errors.BadRequestError("Session is required"))
			return
		}

		var req models.AddCartItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid add item input")
			return
		}

		logger = logger.With(slog.Int64("productId", req.ProductID), slog.Int("quantity", req.Quantity), slog.Bool("override", req.Override))

		cart, err := h.cartService.AddItem(r.Context(), sessionID, &req)
		if err != nil {
			logger.Warn("Failed to add item to cart", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Item added to cart")
		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		sessionID := middleware.SessionFromContext(r.Context())
		if sessionID == "" {
			logger.Warn("Cart mutation without session")
			response.Error(w, errors.BadRequestError("Session is required"))
			return
		}

		productID, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid product id", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		cart, err := h.cartService.RemoveItem(r.Context(), sessionID, productID)
		if err != nil {
			logger.Error("Failed to remove item from cart", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Item removed from cart", slog.Int64("productId", productID))
		response.Success(w, http.StatusOK, cart)
	}
}

func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		sessionID := middleware.SessionFromContext(r.Context())
		if sessionID == "" {
			logger.Warn("Cart mutation without session")
			response.Error(w, errors.BadRequestError("Session is required"))
			return
		}

		if err := h.cartService.Clear(r.Context(), sessionID); err != nil {
			logger.Error("Failed to clear cart", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Cart cleared")
		response.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}
