package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product's entry in a cart. UnitPrice is stored as a
// string because the cart lives as JSON in the session store; it is the
// price snapshot captured when the product was first added and never
// recomputed from the live catalog price.
type CartLine struct {
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// Cart is the session-scoped working set: product id (stringified, JSON
// keys must be strings) to line. It is not the system of record for
// price or stock and must be re-validated at checkout.
type Cart struct {
	SessionID string              `json:"session_id"`
	Lines     map[string]CartLine `json:"lines"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewCart(sessionID string) *Cart {
	return &Cart{
		SessionID: sessionID,
		Lines:     make(map[string]CartLine),
		UpdatedAt: time.Now(),
	}
}

// CartLineView is a cart line joined with its live product row for
// display. LineTotal is snapshot price times quantity.
type CartLineView struct {
	Product   *Product        `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	Lines      []CartLineView  `json:"lines"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
}

type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=99"`
	Override  bool  `json:"override"`
}
