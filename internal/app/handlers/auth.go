package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/shop-backend/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-backend/internal/service"
)

// RegisterRequest — запрос на регистрацию с тегами валидации
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Phone                string `json:"phone" validate:"omitempty,max=50"`
	Address              string `json:"address" validate:"omitempty,max=255"`
	City                 string `json:"city" validate:"omitempty,max=100"`
	Country              string `json:"country" validate:"omitempty,max=100"`
}

// LoginRequest представляет структуру запроса для аутентификации
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse содержит пользователя и JWT-токен
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// RegisterHandler обрабатывает POST /register
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		user, token, err := authService.Register(r.Context(), service.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Address:  req.Address,
			City:     req.City,
			Country:  req.Country,
		})
		if err != nil {
			logger.Error("registration failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, AuthResponse{User: toUserResponse(user), Token: token})
	}
}

// LoginHandler обрабатывает POST /login
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		user, token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, AuthResponse{User: toUserResponse(user), Token: token})
	}
}

// LogoutHandler обрабатывает POST /logout: текущий токен больше не принимается
func LogoutHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LogoutHandler"
		logger := log.With(slog.String("op", op))

		tokenID, expiresAt, ok := jwtmiddleware.TokenFromContext(r.Context())
		if !ok {
			// токен без jti отозвать нельзя
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := authService.Logout(r.Context(), tokenID, expiresAt); err != nil {
			logger.Error("logout failed", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
