package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"

	"github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/models"
	repository "github.com/marcodena/storefront/internal/repositories"
	"github.com/shopspring/decimal"
)

// CartService owns the session cart working set. The cart itself is a
// dumb container of quantities and price snapshots; stock limits are
// enforced by the StockGuard before any mutation is persisted, and the
// catalog join happens only when the cart is read.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	guard       *StockGuard
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, guard *StockGuard) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, guard: guard}
}

func cartKey(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

// AddItem adds a quantity of a product to the session cart, or replaces
// the line's quantity when override is set. The product price is
// snapshotted into the line the first time the product enters the cart.
// When the guard rejects the mutation the stored cart is left untouched.
func (s *CartService) AddItem(ctx context.Context, sessionID string, req *models.AddCartItemRequest) (*models.CartView, error) {

	product, err := s.productRepo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to load product").WithError(err)
	}

	cart, err := s.cartRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	key := cartKey(req.ProductID)

	line, exists := cart.Lines[key]
	if !exists {
		line = models.CartLine{Quantity: 0, UnitPrice: product.Price.String()}
	}

	if err := s.guard.Validate(product, req.Quantity, line.Quantity, req.Override); err != nil {
		return nil, err
	}

	if req.Override {
		line.Quantity = req.Quantity
	} else {
		line.Quantity += req.Quantity
	}

	cart.Lines[key] = line

	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, errors.DatabaseError("Failed to save cart").WithError(err)
	}

	return s.buildView(ctx, cart)
}

// RemoveItem deletes the product's line from the cart. Removing a
// product that is not in the cart is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionID string, productID int64) (*models.CartView, error) {

	cart, err := s.cartRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	key := cartKey(productID)

	if _, exists := cart.Lines[key]; exists {
		delete(cart.Lines, key)

		if err := s.cartRepo.Save(ctx, cart); err != nil {
			return nil, errors.DatabaseError("Failed to save cart").WithError(err)
		}
	}

	return s.buildView(ctx, cart)
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*models.CartView, error) {

	cart, err := s.cartRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	return s.buildView(ctx, cart)
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {

	if err := s.cartRepo.Delete(ctx, sessionID); err != nil {
		return errors.DatabaseError("Failed to clear cart").WithError(err)
	}

	return nil
}

// buildView joins each line with its live product row. Line totals use
// the snapshot price, not the live price, so what the visitor was
// quoted at add time is what the cart charges.
func (s *CartService) buildView(ctx context.Context, cart *models.Cart) (*models.CartView, error) {

	view := &models.CartView{
		Lines:      make([]models.CartLineView, 0, len(cart.Lines)),
		TotalPrice: decimal.Zero,
	}

	for key, line := range cart.Lines {

		productID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errors.InternalError("Corrupt cart line key").WithError(err)
		}

		product, err := s.productRepo.GetProductByID(ctx, productID)
		if err != nil {
			return nil, errors.DatabaseError("Failed to load cart product").WithError(err)
		}

		unitPrice, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			return nil, errors.InternalError("Corrupt cart price snapshot").WithError(err)
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

		view.Lines = append(view.Lines, models.CartLineView{
			Product:   product,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})

		view.TotalPrice = view.TotalPrice.Add(lineTotal)
		view.TotalItems += line.Quantity
	}

	sort.Slice(view.Lines, func(i, j int) bool {
		return view.Lines[i].Product.ID < view.Lines[j].Product.ID
	})

	return view, nil
}
