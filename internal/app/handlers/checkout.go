package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/ministry-shop/internal/service"
)

// CheckoutRequest тело POST /api/checkout: ответ пользователя на вопрос подтверждения
type CheckoutRequest struct {
	Confirm bool `json:"confirm"`
}

// IdempotencyKeyHeader повтор запроса с тем же ключом вернёт уже созданный заказ
const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutPreviewHandler обрабатывает GET /api/checkout: сумма, имя отправителя и текст вопроса
func CheckoutPreviewHandler(log *slog.Logger, cartService service.CartService, checkout service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutPreviewHandler"
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

		preview, err := checkout.Preview(r.Context(), session, cart.Items)
		if err != nil {
			writeCheckoutError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, preview)
	}
}

// CheckoutHandler обрабатывает POST /api/checkout.
// Снимок корзины читается здесь, непосредственно перед оформлением.
func CheckoutHandler(log *slog.Logger, cartService service.CartService, checkout service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		session, ok := sessionFromRequest(w, r, logger)
		if !ok {
			return
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		cart, err := cartService.GetCart(r.Context(), session.UserID)
		if err != nil {
			logger.Error("failed to get cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		receipt, err := checkout.Checkout(r.Context(), service.CheckoutRequest{
			Session:        session,
			Snapshot:       cart.Items,
			IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
			Confirmer: service.ConfirmFunc(func(context.Context, string) bool {
				return req.Confirm
			}),
		})
		if err != nil {
			writeCheckoutError(w, logger, err)
			return
		}

		status := http.StatusCreated
		if receipt.Replayed {
			status = http.StatusOK
		}
		writeJSON(w, logger, status, receipt)
	}
}

func writeCheckoutError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var storeErr *service.StoreWriteError
	switch {
	case errors.As(err, &storeErr):
		logger.Error("checkout failed", slog.String("step", string(storeErr.Step)), slog.Any("error", err))
		http.Error(w, "order failed: "+storeErr.Error(), http.StatusInternalServerError)
	case errors.Is(err, service.ErrEmptyCart):
		http.Error(w, service.ErrEmptyCart.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrMissingIdentity):
		http.Error(w, service.ErrMissingIdentity.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCartLine):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrCheckoutDeclined):
		http.Error(w, service.ErrCheckoutDeclined.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrCheckoutInProgress):
		http.Error(w, service.ErrCheckoutInProgress.Error(), http.StatusConflict)
	default:
		logger.Error("checkout failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
