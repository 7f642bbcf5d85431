package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/linemk/ministry-shop/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrder - заказ с таким ключом идемпотентности у пользователя уже есть
	ErrDuplicateOrder = errors.New("order with this idempotency key already exists")
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrder вставляет заказ в рамках транзакции и заполняет ID и CreatedAt.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error)
	// CreateOrderItems вставляет позиции заказа одним запросом.
	CreateOrderItems(ctx context.Context, tx *sql.Tx, items []models.OrderItem) error
	// GetOrderByIdempotencyKey ищет ранее созданный заказ пользователя по ключу.
	GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error)
	// GetOrdersByUserID возвращает заказы пользователя, новые первыми.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// GetOrderItems возвращает позиции указанных заказов с названием товара.
	GetOrderItems(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	query := `INSERT INTO orders (user_id, total_price, depositor_name, shipping_address, phone, status, idempotency_key, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	          ON CONFLICT (user_id, idempotency_key) DO NOTHING
	          RETURNING id, created_at`

	err := tx.QueryRowContext(ctx, query,
		order.UserID, order.TotalPrice, order.DepositorName, order.ShippingAddress,
		order.Phone, string(order.Status), order.IdempotencyKey,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDuplicateOrder
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) CreateOrderItems(ctx context.Context, tx *sql.Tx, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase) VALUES ")
	args := make([]any, 0, len(items)*4)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase)
	}

	res, err := tx.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(items)) {
		return fmt.Errorf("failed to create order items: inserted %d of %d", affected, len(items))
	}
	return nil
}

const orderColumns = "id, user_id, total_price, depositor_name, shipping_address, phone, status, idempotency_key, created_at"

func scanOrder(scan func(dest ...any) error) (*models.Order, error) {
	o := &models.Order{}
	var status string
	if err := scan(&o.ID, &o.UserID, &o.TotalPrice, &o.DepositorName, &o.ShippingAddress, &o.Phone, &status, &o.IdempotencyKey, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return o, nil
}

func (r *orderRepository) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 AND idempotency_key = $2", userID, key)
	order, err := scanOrder(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrderItems(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []models.OrderItem{}, nil
	}

	query := `
		SELECT oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
