package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/ministry-shop/internal/domain/models"
	"github.com/linemk/ministry-shop/internal/jwt-new/jwtmiddleware"
)

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// заголовок уже отправлен, остаётся только залогировать
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// sessionFromRequest достаёт сессию, положенную JWT-middleware; без неё 401
func sessionFromRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Session, bool) {
	session, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("session not found in context")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return session, ok
}

func idParam(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		logger.Error("invalid id parameter", slog.String("id", chi.URLParam(r, "id")))
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
