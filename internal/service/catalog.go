package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/ministry-shop/internal/cache"
	"github.com/linemk/ministry-shop/internal/domain/models"
	"github.com/linemk/ministry-shop/internal/storage"
)

var validate = validator.New()

// пустая категория означает "все записи"
const postCategoryRule = "omitempty,oneof=" + models.PostCategoryPrayerLetter + " " +
	models.PostCategoryNews + " " + models.PostCategoryVision

// CatalogService - витрина: товары и записи служения.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListPosts(ctx context.Context, category string) ([]*models.MinistryPost, error)
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
	postRepo    storage.PostStorage
	cache       cache.CatalogCache
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, postRepo storage.PostStorage, catalogCache cache.CatalogCache) CatalogService {
	if catalogCache == nil {
		catalogCache = cache.NopCache{}
	}
	return &catalogService{
		log:         log,
		productRepo: productRepo,
		postRepo:    postRepo,
		cache:       catalogCache,
	}
}

// ListProducts отдаёт активные товары, сначала из кэша.
// Ошибки кэша не фатальны - идём в БД.
func (s *catalogService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"
	logger := s.log.With(slog.String("op", op))

	products, err := s.cache.GetActiveProducts(ctx)
	if err == nil {
		logger.Debug("catalog served from cache", slog.Int("count", len(products)))
		return products, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("catalog cache read failed", slog.Any("error", err))
	}

	products, err = s.productRepo.ListActiveProducts(ctx)
	if err != nil {
		logger.Error("failed to list products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.SetActiveProducts(ctx, products); err != nil {
		logger.Warn("catalog cache write failed", slog.Any("error", err))
	}
	return products, nil
}

// GetProduct возвращает товар в продаже; снятый с продажи считается отсутствующим
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	return product, nil
}

func (s *catalogService) ListPosts(ctx context.Context, category string) ([]*models.MinistryPost, error) {
	const op = "service.CatalogService.ListPosts"

	if err := validate.Var(category, postCategoryRule); err != nil {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidCategory, category)
	}

	posts, err := s.postRepo.ListPosts(ctx, category)
	if err != nil {
		s.log.Error("failed to list posts", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}
