package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/shop-backend/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-backend/internal/service"
)

// UpdateProfileRequest частично обновляет профиль, отсутствующие поля не меняются
type UpdateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	City    *string `json:"city" validate:"omitempty,max=100"`
	Country *string `json:"country" validate:"omitempty,max=100"`
	Avatar  *string `json:"avatar" validate:"omitempty,max=2048"`
}

// ProfileHandler обрабатывает GET /profile
func ProfileHandler(log *slog.Logger, profiles service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := profiles.Get(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toUserResponse(user))
	}
}

// UpdateProfileHandler обрабатывает PUT /profile
func UpdateProfileHandler(log *slog.Logger, profiles service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req UpdateProfileRequest
		if !decodeAndValidate(w, r, logger, &req) {
			return
		}

		user, err := profiles.Update(r.Context(), userID, service.ProfileUpdate{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Address: req.Address,
			City:    req.City,
			Country: req.Country,
			Avatar:  req.Avatar,
		})
		if err != nil {
			logger.Warn("failed to update profile", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, toUserResponse(user))
	}
}
