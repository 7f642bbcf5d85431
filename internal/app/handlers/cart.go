package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/ministry-shop/internal/service"
)

// AddToCartRequest тело POST /api/cart
type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gte=1"`
}

// CartHandler обрабатывает GET /api/cart
func CartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartHandler"
		logger := log.With(slog.String("op", op))

		session, ok := sessionFromRequest(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.GetCart(r.Context(), session.UserID)
		if err != nil {
			logger.Error("failed to get cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, cart)
	}
}

// AddToCartHandler обрабатывает POST /api/cart
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		session, ok := sessionFromRequest(w, r, logger)
		if !ok {
			return
		}

		var req AddToCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		item, err := cartService.AddItem(r.Context(), session.UserID, req.ProductID, req.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrProductUnavailable):
				http.Error(w, service.ErrProductUnavailable.Error(), http.StatusNotFound)
			case errors.Is(err, service.ErrInvalidQuantity):
				http.Error(w, service.ErrInvalidQuantity.Error(), http.StatusBadRequest)
			default:
				logger.Error("failed to add item", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, logger, http.StatusCreated, item)
	}
}

// RemoveFromCartHandler обрабатывает DELETE /api/cart/{id}.
// Чужая строка корзины для вызывающего не существует: 404.
func RemoveFromCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromCartHandler"
		logger := log.With(slog.String("op", op))

		session, ok := sessionFromRequest(w, r, logger)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logger)
		if !ok {
			return
		}

		if err := cartService.RemoveItem(r.Context(), session.UserID, id); err != nil {
			if errors.Is(err, service.ErrCartItemNotFound) {
				http.Error(w, service.ErrCartItemNotFound.Error(), http.StatusNotFound)
				return
			}
			logger.Error("failed to remove item", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
