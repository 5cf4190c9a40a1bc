package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcodena/storefront/internal/models"
	"github.com/marcodena/storefront/internal/utils"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, categoryID int64, page, size int) ([]*models.Product, int, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `INSERT INTO products (category_id, name, slug, description, price, stock, available)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, product.CategoryID, product.Name, product.Slug, product.Description, product.Price, product.Stock, product.Available).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	product := &models.Product{}

	query := `
        SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price,
               p.stock, p.available, p.created_at, p.updated_at,
               c.id, c.name, c.slug
        FROM products p
        LEFT JOIN categories c ON p.category_id = c.id
        WHERE p.id = $1`

	var category models.Category

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&product.ID, &product.CategoryID, &product.Name, &product.Slug, &product.Description, &product.Price, &product.Stock, &product.Available, &product.CreatedAt, &product.UpdatedAt, &category.ID, &category.Name, &category.Slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	product.Category = &category

	return product, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products SET category_id = $1, name = $2, description = $3, price = $4, stock = $5, available = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, product.CategoryID, product.Name, product.Description, product.Price, product.Stock, product.Available, product.ID).Scan(&product.UpdatedAt)
}

// ListProducts returns available products, optionally filtered by
// category, newest first. categoryID 0 means all categories.
func (r *productRepository) ListProducts(ctx context.Context, categoryID int64, page, size int) ([]*models.Product, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM products WHERE available = TRUE AND ($1 = 0 OR category_id = $1)`

	err := r.DB.QueryRowContext(dbCtx, countQuery, categoryID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	// Offset
	offset := (page - 1) * size

	query := `
		SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price,
		p.stock, p.available, p.created_at, p.updated_at,
		c.id, c.name, c.slug
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.available = TRUE AND ($1 = 0 OR p.category_id = $1)
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, categoryID, size, offset)
	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product := &models.Product{}
		category := &models.Category{}

		err := rows.Scan(&product.ID, &product.CategoryID, &product.Name, &product.Slug, &product.Description, &product.Price, &product.Stock, &product.Available, &product.CreatedAt, &product.UpdatedAt, &category.ID, &category.Name, &category.Slug)
		if err != nil {
			return nil, 0, err
		}

		product.Category = category
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY name`

	rows, err := r.DB.QueryContext(dbCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	defer rows.Close()

	var categories []*models.Category

	for rows.Next() {
		category := &models.Category{}

		if err := rows.Scan(&category.ID, &category.Name, &category.Slug, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}

		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}
