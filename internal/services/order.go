package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/metrics"
	"github.com/marcodena/storefront/internal/models"
	repository "github.com/marcodena/storefront/internal/repositories"
	"github.com/marcodena/storefront/pkg/sendgrid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService reconciles the session cart into a persisted order. The
// cart is never trusted: every line is re-validated against live stock
// at checkout time, and the final word belongs to the conditional stock
// decrement inside the order repository's transaction.
type OrderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	guard       *StockGuard
	mailer      sendgrid.EmailService
}

func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, productRepo repository.ProductRepository, guard *StockGuard, mailer sendgrid.EmailService) *OrderService {
	return &OrderService{orderRepo: orderRepo, cartRepo: cartRepo, productRepo: productRepo, guard: guard, mailer: mailer}
}

// Checkout converts the session cart into an order. userID is nil for
// guest checkout. Either the order, its items and every stock decrement
// commit together, or nothing takes effect and the cart is untouched.
func (s *OrderService) Checkout(ctx context.Context, sessionID string, userID *uuid.UUID, req *models.CheckoutRequest) (*models.Order, error) {

	if err := validateShipping(req); err != nil {
		metrics.CheckoutsTotal.WithLabelValues("invalid_shipping").Inc()
		return nil, err
	}

	cart, err := s.cartRepo.Get(ctx, sessionID)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.DatabaseError("Failed to load cart").WithError(err)
	}

	if len(cart.Lines) == 0 {
		metrics.CheckoutsTotal.WithLabelValues("empty_cart").Inc()
		return nil, apperrors.CartEmptyError()
	}

	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Address:       req.Address,
		PostalCode:    req.PostalCode,
		City:          req.City,
		PaymentMethod: req.PaymentMethod,
		Paid:          req.PaymentMethod == models.PaymentMethodCard,
		Status:        models.OrderStatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	// Re-validate every line against live stock. Stock may have moved
	// since the items were added; a failure here aborts the whole
	// checkout before anything is written.
	for key, line := range cart.Lines {

		productID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			metrics.CheckoutsTotal.WithLabelValues("error").Inc()
			return nil, apperrors.InternalError("Corrupt cart line key").WithError(err)
		}

		product, err := s.productRepo.GetProductByID(ctx, productID)
		if err != nil {
			metrics.CheckoutsTotal.WithLabelValues("error").Inc()
			if err == sql.ErrNoRows {
				return nil, apperrors.NotFoundError("Product no longer exists: " + key).WithError(err)
			}
			return nil, apperrors.DatabaseError("Failed to load product").WithError(err)
		}

		if err := s.guard.Validate(product, line.Quantity, 0, true); err != nil {
			metrics.CheckoutsTotal.WithLabelValues("insufficient_stock").Inc()
			metrics.StockRejectionsTotal.Inc()
			return nil, err
		}

		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			metrics.CheckoutsTotal.WithLabelValues("error").Inc()
			return nil, apperrors.InternalError("Corrupt cart price snapshot").WithError(err)
		}

		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: productID,
			Price:     price,
			Quantity:  line.Quantity,
			CreatedAt: time.Now(),
		})

	}

	// The repository decrements stock conditionally inside the insert
	// transaction, so a concurrent checkout racing past the validation
	// above still cannot oversell.
	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {

		var stockErr *repository.InsufficientStockError
		if errors.As(err, &stockErr) {
			metrics.CheckoutsTotal.WithLabelValues("insufficient_stock").Inc()
			metrics.StockRejectionsTotal.Inc()
			return nil, s.describeStockConflict(ctx, cart, stockErr)
		}

		metrics.CheckoutsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.CheckoutFailedError(err)
	}

	// The cart lives outside the relational transaction; clear it only
	// after the order committed. A failed clear is logged, not fatal:
	// the next checkout of the stale cart re-validates everything.
	if err := s.cartRepo.Delete(ctx, sessionID); err != nil {
		slog.Warn("Failed to clear cart after checkout",
			slog.String("sessionId", sessionID),
			slog.String("orderId", order.ID.String()),
			slog.Any("error", err))
	}

	metrics.CheckoutsTotal.WithLabelValues("success").Inc()

	s.sendConfirmation(order)

	return order, nil
}

// describeStockConflict re-reads the losing product so the failure names
// it and discloses what is actually left.
func (s *OrderService) describeStockConflict(ctx context.Context, cart *models.Cart, stockErr *repository.InsufficientStockError) error {

	requested := 0
	if line, ok := cart.Lines[strconv.FormatInt(stockErr.ProductID, 10)]; ok {
		requested = line.Quantity
	}

	product, err := s.productRepo.GetProductByID(ctx, stockErr.ProductID)
	if err != nil {
		return apperrors.InsufficientStockError(strconv.FormatInt(stockErr.ProductID, 10), requested, 0).WithError(stockErr)
	}

	return apperrors.InsufficientStockError(product.Name, requested, product.Stock).WithError(stockErr)
}

func (s *OrderService) sendConfirmation(order *models.Order) {
	if s.mailer == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.mailer.SendOrderConfirmation(ctx, order); err != nil {
			slog.Warn("Failed to send order confirmation",
				slog.String("orderId", order.ID.String()),
				slog.Any("error", err))
		}
	}()
}

// validateShipping is the service-level guard behind the handler's
// validator pass, so programmatic callers get the same field-naming
// failures as HTTP ones.
func validateShipping(req *models.CheckoutRequest) error {

	fields := []struct {
		name  string
		value string
	}{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"email", req.Email},
		{"address", req.Address},
		{"postal_code", req.PostalCode},
		{"city", req.City},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperrors.InvalidShippingDataError(f.name, "must not be empty")
		}
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperrors.InvalidShippingDataError("email", "must be a valid email address")
	}

	if req.PaymentMethod != models.PaymentMethodCash && req.PaymentMethod != models.PaymentMethodCard {
		return apperrors.InvalidShippingDataError("payment_method", "must be cash or card")
	}

	return nil
}

func (s *OrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundError("Order not found").WithError(err)
	}

	return order, nil
}

func (s *OrderService) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page int, size int) ([]models.Order, int, error) {

	if page < 1 {
		page = 1
	}

	if size < 1 || size > 100 {
		size = 10
	}

	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

// UpdateOrderStatus enforces the order state machine: forward-only
// pending → processing → shipped → delivered, with cancellation allowed
// from pending and processing only.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundError("Order not found").WithError(err)
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, apperrors.InvalidStatusTransitionError(string(order.Status), string(status))
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, apperrors.DatabaseError("Failed to update order status").WithError(err)
	}

	order.Status = status
	order.UpdatedAt = time.Now()

	return order, nil
}

// MarkPaid flips the paid flag. Unlike status it can change on any
// order, terminal or not.
func (s *OrderService) MarkPaid(ctx context.Context, id uuid.UUID, paid bool) (*models.Order, error) {

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundError("Order not found").WithError(err)
	}

	if err := s.orderRepo.UpdatePaid(ctx, id, paid); err != nil {
		return nil, apperrors.DatabaseError("Failed to update paid flag").WithError(err)
	}

	order.Paid = paid
	order.UpdatedAt = time.Now()

	return order, nil
}
