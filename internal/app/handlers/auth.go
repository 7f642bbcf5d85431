package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/ministry-shop/internal/service"
)

// AuthRequest представляет структуру запроса для аутентификации с тегами валидации
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

var validate = validator.New()

// SignUpHandler регистрирует пользователя и сразу возвращает токен
func SignUpHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SignUpHandler"
		logger := log.With(slog.String("op", op))

		req, ok := decodeAuthRequest(w, r, logger)
		if !ok {
			return
		}

		token, err := authService.SignUp(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("sign up failed", slog.Any("error", err))
			if errors.Is(err, service.ErrUserExists) {
				http.Error(w, service.ErrUserExists.Error(), http.StatusConflict)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusCreated, AuthResponse{Token: token})
	}
}

// SignInHandler – HTTP-обработчик для входа по email и паролю
func SignInHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SignInHandler"
		logger := log.With(slog.String("op", op))

		req, ok := decodeAuthRequest(w, r, logger)
		if !ok {
			return
		}

		token, err := authService.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			if errors.Is(err, service.ErrInvalidCredentials) {
				http.Error(w, service.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, AuthResponse{Token: token})
	}
}

func decodeAuthRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (AuthRequest, bool) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("invalid request: decoding error", slog.Any("error", err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return req, false
	}

	// Валидация структуры запроса с использованием validator
	if err := validate.Struct(req); err != nil {
		logger.Error("invalid request: validation error", slog.Any("error", err))
		http.Error(w, "validation error", http.StatusBadRequest)
		return req, false
	}
	return req, true
}
