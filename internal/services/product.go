package service

import (
	"context"
	"database/sql"

	"github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/models"
	repository "github.com/marcodena/storefront/internal/repositories"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

var minPrice = decimal.NewFromFloat(0.01)

type ProductService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req *models.UpdateProductRequest) (*models.Product, error)
	ListProducts(ctx context.Context, categoryID int64, page, pageSize int) ([]*models.Product, int, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

type productService struct {
	repo      repository.ProductRepository
	sanitizer *bluemonday.Policy
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo, sanitizer: bluemonday.StrictPolicy()}
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.ValidationError("Price must be a decimal number").WithError(err)
	}

	if price.LessThan(minPrice) {
		return decimal.Zero, errors.ValidationError("Price must be at least 0.01")
	}

	return price, nil
}

func (s *productService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {

	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: s.sanitizer.Sanitize(req.Description),
		Price:       price,
		Stock:       req.Stock,
		Available:   true,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, errors.DatabaseError("Failed to create product").WithError(err)
	}

	return product, nil
}

func (s *productService) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}
		return nil, errors.DatabaseError("Failed to load product").WithError(err)
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id int64, req *models.UpdateProductRequest) (*models.Product, error) {

	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = s.sanitizer.Sanitize(*req.Description)
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Available != nil {
		product.Available = *req.Available
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, errors.DatabaseError("Failed to update product").WithError(err)
	}

	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, categoryID int64, page, pageSize int) ([]*models.Product, int, error) {

	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	products, total, err := s.repo.ListProducts(ctx, categoryID, page, pageSize)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to fetch products").WithError(err)
	}

	return products, total, nil
}

func (s *productService) ListCategories(ctx context.Context) ([]*models.Category, error) {

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch categories").WithError(err)
	}

	return categories, nil
}
