package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storypath-server/internal/model"
	"storypath-server/internal/repository"
)

// UserRepository defines storage access for users.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Compile-time check
var _ UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     repository.DBTX
	logger *zap.Logger
}

// NewPgUserRepository создает репозиторий пользователей на PostgreSQL.
func NewPgUserRepository(db repository.DBTX, logger *zap.Logger) UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

const userColumns = `id, username, email, password_hash, is_active, is_superuser, created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
        INSERT INTO users (` + userColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	logFields := []zap.Field{zap.String("userID", user.ID.String()), zap.String("username", user.Username)}
	r.logger.Debug("Creating user", logFields...)

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.IsActive, user.IsSuperuser, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	r.logger.Info("User created successfully", logFields...)
	return nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *pgUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *pgUserRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.IsSuperuser, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return user, nil
}
