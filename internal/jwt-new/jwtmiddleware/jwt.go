package jwtmiddleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	security "github.com/linemk/shop-backend/internal/jwt-new"
)

type contextKey string

const (
	UserIDKey  contextKey = "userID"
	TokenIDKey contextKey = "tokenID"
	ExpiresKey contextKey = "tokenExpires"
)

// RevocationChecker сообщает, отозван ли токен с данным jti.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NewJWTMiddleware создаёт middleware для проверки JWT, секрет берётся из переменной окружения.
// revoked может быть nil, тогда отзыв токенов не проверяется.
func NewJWTMiddleware(log *slog.Logger, revoked RevocationChecker) func(http.Handler) http.Handler {
	secret, err := security.Secret()
	if err != nil {
		panic(err)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization (формат: "Bearer <token>")
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}
			tokenStr := parts[1]

			// Парсинг и проверка токена
			claims, err := security.ParseToken(tokenStr, secret)
			if err != nil {
				log.Debug("token rejected", slog.Any("error", err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			// Извлекаем идентификатор пользователя из поля "sub"
			userID, err := claims.UserID()
			if err != nil {
				http.Error(w, "invalid token claims: invalid user id", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)

			if jti := claims.ID; jti != "" {
				if revoked != nil {
					isRevoked, err := revoked.IsRevoked(r.Context(), jti)
					if err != nil {
						// при недоступном хранилище запрос пропускается
						log.Warn("failed to check token revocation", slog.Any("error", err))
					} else if isRevoked {
						http.Error(w, "token revoked", http.StatusUnauthorized)
						return
					}
				}
				ctx = context.WithValue(ctx, TokenIDKey, jti)
			}
			if claims.ExpiresAt != nil {
				ctx = context.WithValue(ctx, ExpiresKey, claims.ExpiresAt.Time)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext извлекает userID из контекста.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

// TokenFromContext возвращает jti и срок действия текущего токена.
func TokenFromContext(ctx context.Context) (string, time.Time, bool) {
	jti, ok := ctx.Value(TokenIDKey).(string)
	if !ok {
		return "", time.Time{}, false
	}
	exp, _ := ctx.Value(ExpiresKey).(time.Time)
	return jti, exp, true
}
