// Package auth реализует регистрацию и вход пользователей с выдачей JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/invoice-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/invoice-billing/internal/lib/password"
	"github.com/magabrotheeeer/invoice-billing/internal/models"
	"github.com/magabrotheeeer/invoice-billing/internal/storage/repository"
)

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrInvalidCredentials — неверная пара логин/пароль. Не различаем
// "нет такого пользователя" и "пароль не подошёл".
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserRepository определяет методы хранения пользователей.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service регистрирует пользователей и проверяет учётные данные.
type Service struct {
	repo       UserRepository
	tokenMaker jwt.Maker
	log        *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo UserRepository, tokenMaker jwt.Maker, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		tokenMaker: tokenMaker,
		log:        log,
	}
}

// Register создаёт пользователя с ролью user и возвращает его UID.
func (s *Service) Register(ctx context.Context, username, email, pass string) (string, error) {
	const op = "auth.Register"

	hash, err := password.GetHash(pass)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	uid, err := s.repo.RegisterUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.String("username", username), slog.String("uid", uid))
	return uid, nil
}

// Login проверяет пароль и выдаёт JWT с ролью и UID пользователя.
func (s *Service) Login(ctx context.Context, username, pass string) (string, error) {
	const op = "auth.Login"

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := password.CompareHash(user.PasswordHash, pass); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.tokenMaker.GenerateToken(user.Username, user.Role, user.UUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user logged in", slog.String("username", username))
	return token, nil
}
