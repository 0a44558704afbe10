package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/shop-backend/internal/domain/models"
	security "github.com/linemk/shop-backend/internal/jwt-new"
	"github.com/linemk/shop-backend/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// TokenRevoker запоминает отозванные токены до истечения их срока.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	revoker  TokenRevoker
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, revoker TokenRevoker, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		revoker:  revoker,
		tokenTTL: tokenTTL,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
	City     string
	Country  string
}

type AuthServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Register создаёт пользователя (пароль хэшируется через bcrypt) и сразу выдаёт токен.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	const op = "auth.Register"
	email := strings.ToLower(strings.TrimSpace(in.Email))
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Name:     in.Name,
		Email:    email,
		PassHash: passHash,
		Phone:    in.Phone,
		Address:  in.Address,
		City:     in.City,
		Country:  in.Country,
	})
	if err != nil {
		logger.Warn("failed to create user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to create user: %w", op, classify(err))
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, token, nil
}

// Login сравнивает пароль с сохранённым хэшем и выдаёт JWT-токен.
// Секрет для подписи берется из переменной окружения JWT_SECRET.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	const op = "auth.Login"
	email = strings.ToLower(strings.TrimSpace(email))
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return user, token, nil
}

// Logout отзывает текущий токен до конца его срока действия.
func (a *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	const op = "auth.Logout"

	ttl := a.tokenTTL
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
	}
	if err := a.revoker.Revoke(ctx, tokenID, ttl); err != nil {
		a.log.Error("failed to revoke token", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
