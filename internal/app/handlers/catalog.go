package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/ministry-shop/internal/service"
)

// ProductsHandler обрабатывает GET /api/products: товары в продаже, новые первыми
func ProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductsHandler"
		logger := log.With(slog.String("op", op))

		products, err := catalog.ListProducts(r.Context())
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, products)
	}
}

// ProductHandler обрабатывает GET /api/products/{id}
func ProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, logger)
		if !ok {
			return
		}

		product, err := catalog.GetProduct(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				http.Error(w, service.ErrProductNotFound.Error(), http.StatusNotFound)
				return
			}
			logger.Error("failed to get product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, product)
	}
}

// PostsHandler обрабатывает GET /api/posts?category=...
func PostsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PostsHandler"
		logger := log.With(slog.String("op", op))

		posts, err := catalog.ListPosts(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			if errors.Is(err, service.ErrInvalidCategory) {
				http.Error(w, service.ErrInvalidCategory.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("failed to list posts", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, posts)
	}
}
