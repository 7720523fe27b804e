package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storypath-server/internal/model"
)

// Compile-time check
var _ SessionRepository = (*pgSessionRepository)(nil)

type pgSessionRepository struct {
	logger *zap.Logger
}

// NewPgSessionRepository создает репозиторий сессий на PostgreSQL.
func NewPgSessionRepository(logger *zap.Logger) SessionRepository {
	return &pgSessionRepository{
		logger: logger.Named("PgSessionRepo"),
	}
}

func (r *pgSessionRepository) CreateSession(ctx context.Context, q DBTX, session *model.Session) error {
	query := `INSERT INTO sessions (id, story_id, created_at) VALUES ($1, $2, $3)`
	logFields := []zap.Field{zap.String("sessionID", session.ID.String()), zap.String("storyID", session.StoryID.String())}
	r.logger.Debug("Creating session", logFields...)

	if _, err := q.Exec(ctx, query, session.ID, session.StoryID, session.CreatedAt); err != nil {
		r.logger.Error("Failed to create session", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	r.logger.Info("Session created successfully", logFields...)
	return nil
}

func (r *pgSessionRepository) GetSession(ctx context.Context, q DBTX, id uuid.UUID) (*model.Session, error) {
	query := `SELECT id, story_id, created_at FROM sessions WHERE id = $1`
	return r.getOne(ctx, q, query, id)
}

func (r *pgSessionRepository) GetSessionByStory(ctx context.Context, q DBTX, storyID uuid.UUID) (*model.Session, error) {
	query := `SELECT id, story_id, created_at FROM sessions WHERE story_id = $1`
	return r.getOne(ctx, q, query, storyID)
}

func (r *pgSessionRepository) getOne(ctx context.Context, q DBTX, query string, arg any) (*model.Session, error) {
	session := &model.Session{}
	err := q.QueryRow(ctx, query, arg).Scan(&session.ID, &session.StoryID, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to get session", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return session, nil
}

// AddParticipant is idempotent: the ON CONFLICT clause makes a repeat join a no-op.
func (r *pgSessionRepository) AddParticipant(ctx context.Context, q DBTX, sessionID, userID uuid.UUID) error {
	query := `
        INSERT INTO session_participants (session_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (session_id, user_id) DO NOTHING
    `
	logFields := []zap.Field{zap.String("sessionID", sessionID.String()), zap.String("userID", userID.String())}

	if _, err := q.Exec(ctx, query, sessionID, userID); err != nil {
		r.logger.Error("Failed to add session participant", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка добавления участника сессии: %w", err)
	}
	r.logger.Debug("Session participant ensured", logFields...)
	return nil
}

func (r *pgSessionRepository) IsParticipant(ctx context.Context, q DBTX, sessionID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM session_participants WHERE session_id = $1 AND user_id = $2)`
	var exists bool
	if err := q.QueryRow(ctx, query, sessionID, userID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check session participant",
			zap.String("sessionID", sessionID.String()),
			zap.String("userID", userID.String()),
			zap.Error(err))
		return false, fmt.Errorf("ошибка проверки участника сессии: %w", err)
	}
	return exists, nil
}
