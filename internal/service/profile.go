package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/storage"
)

// ProfileUpdate — частичное обновление профиля, nil означает "не менять".
type ProfileUpdate struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	City    *string
	Country *string
	Avatar  *string
}

type ProfileService interface {
	Get(ctx context.Context, userID int64) (*models.User, error)
	Update(ctx context.Context, userID int64, upd ProfileUpdate) (*models.User, error)
}

type profileService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
}

func NewProfileService(log *slog.Logger, userRepo storage.UserStorage) ProfileService {
	return &profileService{log: log, userRepo: userRepo}
}

func (s *profileService) Get(ctx context.Context, userID int64) (*models.User, error) {
	const op = "service.ProfileService.Get"

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get user", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return user, nil
}

func (s *profileService) Update(ctx context.Context, userID int64, upd ProfileUpdate) (*models.User, error) {
	const op = "service.ProfileService.Update"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&user.Name, upd.Name)
	apply(&user.Phone, upd.Phone)
	apply(&user.Address, upd.Address)
	apply(&user.City, upd.City)
	apply(&user.Country, upd.Country)
	apply(&user.Avatar, upd.Avatar)
	if upd.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		logger.Warn("failed to update user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	logger.Info("profile updated")
	return user, nil
}
