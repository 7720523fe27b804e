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
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий историй на PostgreSQL.
func NewPgStoryRepository(logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) CreateStory(ctx context.Context, q DBTX, story *model.Story) error {
	query := `
        INSERT INTO stories (id, user_id, genre, title, head_part_id, is_ended, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	logFields := []zap.Field{zap.String("storyID", story.ID.String()), zap.String("userID", story.UserID.String())}
	r.logger.Debug("Creating story", logFields...)

	_, err := q.Exec(ctx, query,
		story.ID, story.UserID, story.Genre, story.Title, story.HeadPartID, story.IsEnded, story.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания истории: %w", err)
	}
	r.logger.Info("Story created successfully", logFields...)
	return nil
}

func (r *pgStoryRepository) GetStory(ctx context.Context, q DBTX, id uuid.UUID) (*model.Story, error) {
	query := `
        SELECT id, user_id, genre, title, head_part_id, is_ended, created_at
        FROM stories
        WHERE id = $1
    `
	story := &model.Story{}
	err := q.QueryRow(ctx, query, id).Scan(
		&story.ID, &story.UserID, &story.Genre, &story.Title, &story.HeadPartID, &story.IsEnded, &story.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Story not found", zap.String("storyID", id.String()))
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to get story", zap.String("storyID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения истории %s: %w", id, err)
	}
	return story, nil
}

func (r *pgStoryRepository) ListStoriesByUser(ctx context.Context, q DBTX, userID uuid.UUID) ([]model.Story, error) {
	query := `
        SELECT id, user_id, genre, title, head_part_id, is_ended, created_at
        FROM stories
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query user stories", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка историй: %w", err)
	}
	defer rows.Close()

	var stories []model.Story
	for rows.Next() {
		var s model.Story
		if err := rows.Scan(&s.ID, &s.UserID, &s.Genre, &s.Title, &s.HeadPartID, &s.IsEnded, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения данных из БД: %w", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после чтения данных из БД: %w", err)
	}
	return stories, nil
}

func (r *pgStoryRepository) DeleteStory(ctx context.Context, q DBTX, id, userID uuid.UUID) error {
	query := `DELETE FROM stories WHERE id = $1 AND user_id = $2`
	logFields := []zap.Field{zap.String("storyID", id.String()), zap.String("userID", userID.String())}
	r.logger.Debug("Deleting story", logFields...)

	commandTag, err := q.Exec(ctx, query, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка удаления истории %s: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent or unauthorized story", logFields...)
		return model.ErrNotFound
	}
	r.logger.Info("Story deleted successfully", logFields...)
	return nil
}

func (r *pgStoryRepository) SetHead(ctx context.Context, q DBTX, storyID, headPartID uuid.UUID, ended bool) error {
	query := `UPDATE stories SET head_part_id = $1, is_ended = $2 WHERE id = $3`
	commandTag, err := q.Exec(ctx, query, headPartID, ended, storyID)
	if err != nil {
		r.logger.Error("Failed to set story head", zap.String("storyID", storyID.String()), zap.Error(err))
		return fmt.Errorf("ошибка обновления head истории %s: %w", storyID, err)
	}
	if commandTag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) CreatePart(ctx context.Context, q DBTX, part *model.StoryPart) error {
	query := `
        INSERT INTO story_parts (id, story_id, text, previous_part_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := q.Exec(ctx, query, part.ID, part.StoryID, part.Text, part.PreviousPartID, part.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create story part",
			zap.String("partID", part.ID.String()),
			zap.String("storyID", part.StoryID.String()),
			zap.Error(err))
		return fmt.Errorf("ошибка создания части истории: %w", err)
	}
	return nil
}

func (r *pgStoryRepository) GetPart(ctx context.Context, q DBTX, id uuid.UUID) (*model.StoryPart, error) {
	query := `
        SELECT id, story_id, text, previous_part_id, created_at
        FROM story_parts
        WHERE id = $1
    `
	part := &model.StoryPart{}
	err := q.QueryRow(ctx, query, id).Scan(&part.ID, &part.StoryID, &part.Text, &part.PreviousPartID, &part.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to get story part", zap.String("partID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения части истории %s: %w", id, err)
	}
	return part, nil
}

func (r *pgStoryRepository) ListParts(ctx context.Context, q DBTX, storyID uuid.UUID) ([]model.StoryPart, error) {
	query := `
        SELECT id, story_id, text, previous_part_id, created_at
        FROM story_parts
        WHERE story_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := q.Query(ctx, query, storyID)
	if err != nil {
		r.logger.Error("Failed to query story parts", zap.String("storyID", storyID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения частей истории: %w", err)
	}
	defer rows.Close()

	var parts []model.StoryPart
	for rows.Next() {
		var p model.StoryPart
		if err := rows.Scan(&p.ID, &p.StoryID, &p.Text, &p.PreviousPartID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения данных из БД: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после чтения данных из БД: %w", err)
	}
	return parts, nil
}

func (r *pgStoryRepository) CreateChoices(ctx context.Context, q DBTX, choices []model.ChoiceOption) error {
	query := `
        INSERT INTO choice_options (id, story_part_id, text, next_part_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	for i := range choices {
		c := &choices[i]
		if _, err := q.Exec(ctx, query, c.ID, c.StoryPartID, c.Text, c.NextPartID, c.CreatedAt); err != nil {
			r.logger.Error("Failed to create choice option",
				zap.String("choiceID", c.ID.String()),
				zap.String("partID", c.StoryPartID.String()),
				zap.Error(err))
			return fmt.Errorf("ошибка создания варианта выбора: %w", err)
		}
	}
	return nil
}

func (r *pgStoryRepository) GetChoice(ctx context.Context, q DBTX, id uuid.UUID) (*model.ChoiceOption, error) {
	query := `
        SELECT id, story_part_id, text, next_part_id, created_at
        FROM choice_options
        WHERE id = $1
    `
	choice := &model.ChoiceOption{}
	err := q.QueryRow(ctx, query, id).Scan(&choice.ID, &choice.StoryPartID, &choice.Text, &choice.NextPartID, &choice.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		r.logger.Error("Failed to get choice option", zap.String("choiceID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения варианта выбора %s: %w", id, err)
	}
	return choice, nil
}

func (r *pgStoryRepository) ListChoicesByPart(ctx context.Context, q DBTX, partID uuid.UUID) ([]model.ChoiceOption, error) {
	query := `
        SELECT id, story_part_id, text, next_part_id, created_at
        FROM choice_options
        WHERE story_part_id = $1
        ORDER BY created_at ASC, id ASC
    `
	return r.listChoices(ctx, q, query, partID)
}

func (r *pgStoryRepository) ListResolvedChoices(ctx context.Context, q DBTX, storyID uuid.UUID) ([]model.ChoiceOption, error) {
	query := `
        SELECT co.id, co.story_part_id, co.text, co.next_part_id, co.created_at
        FROM choice_options co
        JOIN story_parts sp ON sp.id = co.story_part_id
        WHERE sp.story_id = $1 AND co.next_part_id IS NOT NULL
    `
	return r.listChoices(ctx, q, query, storyID)
}

func (r *pgStoryRepository) listChoices(ctx context.Context, q DBTX, query string, arg any) ([]model.ChoiceOption, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error("Failed to query choice options", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения вариантов выбора: %w", err)
	}
	defer rows.Close()

	var choices []model.ChoiceOption
	for rows.Next() {
		var c model.ChoiceOption
		if err := rows.Scan(&c.ID, &c.StoryPartID, &c.Text, &c.NextPartID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения данных из БД: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после чтения данных из БД: %w", err)
	}
	return choices, nil
}

// TakeChoice stamps next_part_id with a conditional update. The IS NULL guard
// serializes concurrent continuations of the same choice: the loser sees zero
// affected rows and the enclosing transaction is rolled back.
func (r *pgStoryRepository) TakeChoice(ctx context.Context, q DBTX, choiceID, nextPartID uuid.UUID) error {
	query := `UPDATE choice_options SET next_part_id = $1 WHERE id = $2 AND next_part_id IS NULL`
	logFields := []zap.Field{zap.String("choiceID", choiceID.String()), zap.String("nextPartID", nextPartID.String())}

	commandTag, err := q.Exec(ctx, query, nextPartID, choiceID)
	if err != nil {
		r.logger.Error("Failed to take choice", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка фиксации выбора %s: %w", choiceID, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Choice already taken", logFields...)
		return model.ErrChoiceAlreadyTaken
	}
	r.logger.Debug("Choice taken", logFields...)
	return nil
}
