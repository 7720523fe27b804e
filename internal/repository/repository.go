package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storypath-server/internal/model"
)

// DBTX abstracts a pgx pool or transaction so repositories can run inside either.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoryRepository owns stories, their parts and choice options.
// Every method takes an explicit querier so callers control transaction scope.
type StoryRepository interface {
	CreateStory(ctx context.Context, q DBTX, story *model.Story) error
	GetStory(ctx context.Context, q DBTX, id uuid.UUID) (*model.Story, error)
	ListStoriesByUser(ctx context.Context, q DBTX, userID uuid.UUID) ([]model.Story, error)
	// DeleteStory removes the story owned by userID; dependent rows cascade.
	DeleteStory(ctx context.Context, q DBTX, id, userID uuid.UUID) error
	// SetHead advances the story's tip and its ended flag.
	SetHead(ctx context.Context, q DBTX, storyID, headPartID uuid.UUID, ended bool) error

	CreatePart(ctx context.Context, q DBTX, part *model.StoryPart) error
	GetPart(ctx context.Context, q DBTX, id uuid.UUID) (*model.StoryPart, error)
	// ListParts returns a story's parts in creation order (the transcript order).
	ListParts(ctx context.Context, q DBTX, storyID uuid.UUID) ([]model.StoryPart, error)

	CreateChoices(ctx context.Context, q DBTX, choices []model.ChoiceOption) error
	GetChoice(ctx context.Context, q DBTX, id uuid.UUID) (*model.ChoiceOption, error)
	ListChoicesByPart(ctx context.Context, q DBTX, partID uuid.UUID) ([]model.ChoiceOption, error)
	// ListResolvedChoices returns the story's taken choices (next_part_id set).
	ListResolvedChoices(ctx context.Context, q DBTX, storyID uuid.UUID) ([]model.ChoiceOption, error)
	// TakeChoice stamps next_part_id only if it is still null; returns
	// model.ErrChoiceAlreadyTaken otherwise.
	TakeChoice(ctx context.Context, q DBTX, choiceID, nextPartID uuid.UUID) error
}

// SessionRepository owns collaborative sessions and their memberships.
type SessionRepository interface {
	CreateSession(ctx context.Context, q DBTX, session *model.Session) error
	GetSession(ctx context.Context, q DBTX, id uuid.UUID) (*model.Session, error)
	GetSessionByStory(ctx context.Context, q DBTX, storyID uuid.UUID) (*model.Session, error)
	// AddParticipant is idempotent: a repeat join is a silent no-op.
	AddParticipant(ctx context.Context, q DBTX, sessionID, userID uuid.UUID) error
	IsParticipant(ctx context.Context, q DBTX, sessionID, userID uuid.UUID) (bool, error)
}
