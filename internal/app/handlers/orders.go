package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/ministry-shop/internal/service"
)

// OrdersHandler обрабатывает GET /api/orders: заказы пользователя с позициями
func OrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrdersHandler"
		logger := log.With(slog.String("op", op))

		session, ok := sessionFromRequest(w, r, logger)
		if !ok {
			return
		}

		orders, err := orderService.ListOrders(r.Context(), session.UserID)
		if err != nil {
			logger.Error("failed to get orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, orders)
	}
}
