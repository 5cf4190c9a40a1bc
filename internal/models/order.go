package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

type PaymentMethod string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"

	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// statusTransitions is the forward-only order state machine. Shipped,
// delivered and cancelled are terminal; paid flips independently.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

type Order struct {
	ID            uuid.UUID     `json:"id"`
	UserID        *uuid.UUID    `json:"user_id,omitempty"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Email         string        `json:"email"`
	Address       string        `json:"address"`
	PostalCode    string        `json:"postal_code"`
	City          string        `json:"city"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Paid          bool          `json:"paid"`
	Status        OrderStatus   `json:"status"`
	Items         []OrderItem   `json:"items"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TotalCost sums item snapshot prices times quantities.
func (o *Order) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return total
}

type CheckoutRequest struct {
	FirstName     string        `json:"first_name" validate:"required,max=50"`
	LastName      string        `json:"last_name" validate:"required,max=50"`
	Email         string        `json:"email" validate:"required,email"`
	Address       string        `json:"address" validate:"required,max=250"`
	PostalCode    string        `json:"postal_code" validate:"required,max=20"`
	City          string        `json:"city" validate:"required,max=100"`
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required,oneof=cash card"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}
