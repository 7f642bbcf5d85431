package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/ministry-shop/internal/domain/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartStorage описывает методы для работы с корзиной.
type CartStorage interface {
	// GetCartByUserID возвращает строки корзины с данными товара (JOIN products), старые первыми.
	GetCartByUserID(ctx context.Context, userID int64) ([]models.CartItem, error)
	// AddItem добавляет товар; если строка уже есть, увеличивает количество.
	AddItem(ctx context.Context, userID, productID, quantity int64) (*models.CartItem, error)
	// RemoveItem удаляет строку корзины только если она принадлежит userID.
	RemoveItem(ctx context.Context, userID, itemID int64) error
	// ClearCart удаляет все строки пользователя в рамках транзакции.
	ClearCart(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetCartByUserID(ctx context.Context, userID int64) ([]models.CartItem, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, p.name, p.price, p.main_image
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt,
			&item.Product.Name, &item.Product.Price, &item.Product.Image); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) AddItem(ctx context.Context, userID, productID, quantity int64) (*models.CartItem, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, created_at`

	item := &models.CartItem{UserID: userID, ProductID: productID}
	err := r.db.QueryRowContext(ctx, query, userID, productID, quantity).Scan(&item.ID, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// ClearCart чистит корзину целиком по user_id, а не по id строк,
// чтобы не оставить строки, добавленные после чтения снимка
func (r *cartRepository) ClearCart(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return res.RowsAffected()
}
