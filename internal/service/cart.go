package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/ministry-shop/internal/domain/models"
	"github.com/linemk/ministry-shop/internal/storage"
)

// CartView корзина с итоговой суммой
type CartView struct {
	Items      []models.CartItem `json:"items"`
	TotalPrice int64             `json:"total_price"`
}

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*CartView, error)
	AddItem(ctx context.Context, userID, productID, quantity int64) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart читает корзину вместе с текущими ценами товаров.
// Результат используется и как снимок для оформления заказа.
func (s *cartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	const op = "service.CartService.GetCart"

	items, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CartView{
		Items:      items,
		TotalPrice: models.CartTotal(items),
	}, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID, quantity int64) (*models.CartItem, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("productID", productID),
		slog.Int64("quantity", quantity),
	)

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			logger.Warn("product not found")
			return nil, fmt.Errorf("%s: %w", op, ErrProductUnavailable)
		}
		logger.Error("failed to get product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !product.IsActive {
		logger.Warn("product is not on sale")
		return nil, fmt.Errorf("%s: %w", op, ErrProductUnavailable)
	}

	item, err := s.cartRepo.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductUnavailable)
		}
		logger.Error("failed to add cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	item.Product = models.CartProduct{
		Name:  product.Name,
		Price: product.Price,
		Image: product.MainImage,
	}
	logger.Info("item added to cart", slog.Int64("cartItemID", item.ID))
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	const op = "service.CartService.RemoveItem"

	if err := s.cartRepo.RemoveItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return fmt.Errorf("%s: %w", op, ErrCartItemNotFound)
		}
		s.log.Error("failed to remove cart item", slog.String("op", op), slog.Int64("itemID", itemID), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
