package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storypath-server/internal/model"
)

// Service handles registration, login and token issuance.
type Service struct {
	repo   UserRepository
	tokens *TokenManager
	logger *zap.Logger
}

// NewService creates a new auth Service.
func NewService(repo UserRepository, tokens *TokenManager, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger.Named("AuthService"),
	}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	log := s.logger.With(zap.String("username", username))
	log.Info("Register called")

	if username == "" || email == "" || password == "" {
		return nil, model.ErrInvalidInput
	}

	// Проверяем, существует ли пользователь с таким username
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, model.ErrUserAlreadyExists
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("ошибка при проверке существования пользователя: %w", err)
	}

	// Проверяем, существует ли пользователь с таким email
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, model.ErrEmailAlreadyExists
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("ошибка при проверке email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка при хешировании пароля: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		log.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	log.Info("User registered", zap.String("userID", user.ID.String()))
	return user, nil
}

// Login проверяет учетные данные и возвращает JWT токен и пользователя.
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	log := s.logger.With(zap.String("username", username))
	log.Info("Login called")

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", nil, model.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}

	if !user.IsActive {
		log.Warn("Inactive user attempted login", zap.String("userID", user.ID.String()))
		return "", nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, model.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("ошибка при создании токена: %w", err)
	}

	return token, user, nil
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}
