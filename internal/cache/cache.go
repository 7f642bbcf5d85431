package cache

import (
	"context"
	"errors"

	"github.com/linemk/ministry-shop/internal/domain/models"
)

// CatalogCache хранит список активных товаров
type CatalogCache interface {
	GetActiveProducts(ctx context.Context) ([]*models.Product, error)
	SetActiveProducts(ctx context.Context, products []*models.Product) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache используется, когда redis не настроен: всегда промах
type NopCache struct{}

func (NopCache) GetActiveProducts(context.Context) ([]*models.Product, error) {
	return nil, ErrCacheMiss
}

func (NopCache) SetActiveProducts(context.Context, []*models.Product) error { return nil }
