package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marcodena/storefront/internal/models"
	"github.com/marcodena/storefront/internal/utils"
	"github.com/google/uuid"
)

// InsufficientStockError is returned by CreateOrder when the conditional
// stock decrement matched no row, meaning another checkout drained the
// stock after validation. The transaction is rolled back.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	UpdatePaid(ctx context.Context, id uuid.UUID, paid bool) error
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

// CreateOrder persists the order, its items and the stock decrements as
// one transaction. The decrement is conditional (stock >= quantity), so
// the check-then-decrement window is closed at the database: either all
// rows are updated and the order commits, or nothing takes effect.
func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(dbCtx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, user_id, first_name, last_name, email, address, postal_code, city, payment_method, paid, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`

	_, err = tx.ExecContext(dbCtx, query, order.ID, order.UserID, order.FirstName, order.LastName, order.Email, order.Address, order.PostalCode, order.City, order.PaymentMethod, order.Paid, order.Status)

	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {

		query := `
			INSERT INTO order_items (id, order_id, product_id, price, quantity, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`

		_, err := tx.ExecContext(dbCtx, query, item.ID, order.ID, item.ProductID, item.Price, item.Quantity)

		if err != nil {
			return fmt.Errorf("failed to insert an order item: %w", err)
		}

		result, err := tx.ExecContext(dbCtx, `
			UPDATE products
			SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`,
			item.Quantity, item.ProductID,
		)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		if rows == 0 {
			return &InsufficientStockError{ProductID: item.ProductID}
		}

	}

	return tx.Commit()
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	order := &models.Order{
		ID: id,
	}

	query := `
		SELECT user_id, first_name, last_name, email, address, postal_code, city, payment_method, paid, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&order.UserID, &order.FirstName, &order.LastName, &order.Email, &order.Address, &order.PostalCode, &order.City, &order.PaymentMethod, &order.Paid, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	items, err := r.getOrderItems(dbCtx, id)
	if err != nil {
		return nil, err
	}

	order.Items = items

	return order, nil
}

func (r *orderRepository) getOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {

	query := `
		SELECT id, product_id, price, quantity, created_at
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.DB.QueryContext(ctx, query, orderID)

	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}

	defer rows.Close()

	var items []models.OrderItem

	for rows.Next() {

		var item models.OrderItem

		err := rows.Scan(&item.ID, &item.ProductID, &item.Price, &item.Quantity, &item.CreatedAt)

		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		item.OrderID = orderID

		items = append(items, item)

	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page int, size int) ([]models.Order, int, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int
	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	err := r.DB.QueryRowContext(dbCtx, countQuery, userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	// Offset
	offset := (page - 1) * size

	query := `
		SELECT id, first_name, last_name, email, address, postal_code, city, payment_method, paid, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID, size, offset)

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	defer rows.Close()

	var orders []models.Order

	for rows.Next() {

		var order models.Order

		order.UserID = &userID

		err := rows.Scan(&order.ID, &order.FirstName, &order.LastName, &order.Email, &order.Address, &order.PostalCode, &order.City, &order.PaymentMethod, &order.Paid, &order.Status, &order.CreatedAt, &order.UpdatedAt)

		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan the orders: %w", err)
		}

		orders = append(orders, order)

	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {

		items, err := r.getOrderItems(dbCtx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}

		orders[i].Items = items
	}

	return orders, total, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, time.Now(), id)

	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *orderRepository) UpdatePaid(ctx context.Context, id uuid.UUID, paid bool) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE orders SET paid = $1, updated_at = $2 WHERE id = $3
	`

	result, err := r.DB.ExecContext(dbCtx, query, paid, time.Now(), id)

	if err != nil {
		return fmt.Errorf("failed to update paid flag: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
