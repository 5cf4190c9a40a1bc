package service

import (
	"github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/models"
)

// StockGuard is the single stock validation used by every cart mutation
// and again at checkout. Cart state between requests is untrusted, so
// the guard always works from the live product row it is handed.
type StockGuard struct{}

func NewStockGuard() *StockGuard {
	return &StockGuard{}
}

// Validate checks that the quantity a cart line would end up holding
// does not exceed the product's current stock. With override the
// requested quantity replaces the line, otherwise it adds to whatever
// is already in the cart.
func (g *StockGuard) Validate(product *models.Product, requested, inCart int, override bool) error {

	effective := requested
	if !override {
		effective = inCart + requested
	}

	if !product.Available {
		return errors.InsufficientStockError(product.Name, effective, 0)
	}

	if effective > product.Stock {
		return errors.InsufficientStockError(product.Name, effective, product.Stock)
	}

	return nil
}
