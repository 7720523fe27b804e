package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storypath-server/internal/generator"
	"storypath-server/internal/model"
	"storypath-server/internal/repository"
)

// StoryView is everything a client needs to display a story: the linear
// transcript plus the open choices of the current tip.
type StoryView struct {
	Story      *model.Story              `json:"story"`
	Transcript []model.TranscriptSegment `json:"transcript"`
	Choices    []model.ChoiceOption      `json:"choices"`
}

// BranchEngine implements the story branching state machine: starting a story,
// continuing it from a chosen option, ending it, and rebuilding the transcript.
// The acting user is an explicit parameter on every call.
type BranchEngine interface {
	StartStory(ctx context.Context, userID uuid.UUID, genre, prompt string) (*model.Story, error)
	ContinueStory(ctx context.Context, storyID, choiceID, userID uuid.UUID) (*model.StoryPart, error)
	EndStory(ctx context.Context, storyID, userID uuid.UUID) (*model.StoryPart, error)
	RenderTranscript(ctx context.Context, storyID, userID uuid.UUID) ([]model.TranscriptSegment, error)
	GetStoryView(ctx context.Context, storyID, userID uuid.UUID) (*StoryView, error)
	AbandonStory(ctx context.Context, storyID, userID uuid.UUID, confirmed bool) error
	ListStories(ctx context.Context, userID uuid.UUID) ([]model.Story, error)
}

type branchEngine struct {
	stories  repository.StoryRepository
	sessions repository.SessionRepository
	gen      generator.Generator
	db       repository.DBTX
	tx       TxRunner
	logger   *zap.Logger
}

// NewBranchEngine creates the branch engine.
func NewBranchEngine(
	stories repository.StoryRepository,
	sessions repository.SessionRepository,
	gen generator.Generator,
	db repository.DBTX,
	tx TxRunner,
	logger *zap.Logger,
) BranchEngine {
	return &branchEngine{
		stories:  stories,
		sessions: sessions,
		gen:      gen,
		db:       db,
		tx:       tx,
		logger:   logger.Named("BranchEngine"),
	}
}

// StartStory generates the opening segment and persists the story, its first
// part and its choice options atomically. A generation failure persists nothing.
func (e *branchEngine) StartStory(ctx context.Context, userID uuid.UUID, genre, prompt string) (*model.Story, error) {
	log := e.logger.With(zap.String("userID", userID.String()), zap.String("genre", genre))
	log.Info("StartStory called")

	genre = strings.TrimSpace(genre)
	prompt = strings.TrimSpace(prompt)
	if genre == "" || prompt == "" {
		return nil, model.ErrInvalidInput
	}

	// Generate before touching the store so a failed call leaves no trace.
	segment, err := e.gen.Generate(ctx, prompt, genre, false)
	if err != nil {
		log.Warn("Generation failed for new story", zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	story := &model.Story{
		ID:        uuid.New(),
		UserID:    userID,
		Genre:     genre,
		Title:     model.StoryTitle(genre, prompt),
		CreatedAt: now,
	}
	part := &model.StoryPart{
		ID:        uuid.New(),
		StoryID:   story.ID,
		Text:      segment.Story,
		CreatedAt: now,
	}
	choices := newChoices(part.ID, segment.Choices, now)

	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := e.stories.CreateStory(ctx, tx, story); err != nil {
			return err
		}
		if err := e.stories.CreatePart(ctx, tx, part); err != nil {
			return err
		}
		if err := e.stories.CreateChoices(ctx, tx, choices); err != nil {
			return err
		}
		return e.stories.SetHead(ctx, tx, story.ID, part.ID, false)
	})
	if err != nil {
		log.Error("Failed to persist new story", zap.Error(err))
		return nil, fmt.Errorf("ошибка сохранения новой истории: %w", err)
	}

	story.HeadPartID = &part.ID
	log.Info("Story started", zap.String("storyID", story.ID.String()))
	return story, nil
}

// ContinueStory extends the story from the chosen option. The chosen option's
// next_part_id is stamped with a conditional update inside the same transaction
// that creates the new part, so a choice can be taken at most once.
func (e *branchEngine) ContinueStory(ctx context.Context, storyID, choiceID, userID uuid.UUID) (*model.StoryPart, error) {
	log := e.logger.With(
		zap.String("storyID", storyID.String()),
		zap.String("choiceID", choiceID.String()),
		zap.String("userID", userID.String()))
	log.Info("ContinueStory called")

	story, err := e.authorizeStory(ctx, storyID, userID)
	if err != nil {
		return nil, err
	}
	if story.IsEnded {
		return nil, model.ErrStoryEnded
	}

	choice, err := e.stories.GetChoice(ctx, e.db, choiceID)
	if err != nil {
		return nil, err
	}
	owningPart, err := e.stories.GetPart(ctx, e.db, choice.StoryPartID)
	if err != nil {
		return nil, err
	}
	if owningPart.StoryID != storyID {
		log.Warn("Choice does not belong to story")
		return nil, model.ErrNotFound
	}
	// Fast path; the conditional update below closes the race.
	if choice.NextPartID != nil {
		return nil, model.ErrChoiceAlreadyTaken
	}

	segment, err := e.gen.Generate(ctx, choice.Text, story.Genre, true)
	if err != nil {
		log.Warn("Generation failed for continuation", zap.Error(err))
		return nil, err
	}

	now := time.Now().UTC()
	part := &model.StoryPart{
		ID:             uuid.New(),
		StoryID:        storyID,
		Text:           segment.Story,
		PreviousPartID: &choice.StoryPartID,
		CreatedAt:      now,
	}
	choices := newChoices(part.ID, segment.Choices, now)

	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := e.stories.CreatePart(ctx, tx, part); err != nil {
			return err
		}
		if err := e.stories.CreateChoices(ctx, tx, choices); err != nil {
			return err
		}
		if err := e.stories.TakeChoice(ctx, tx, choice.ID, part.ID); err != nil {
			return err
		}
		return e.stories.SetHead(ctx, tx, storyID, part.ID, false)
	})
	if err != nil {
		if errors.Is(err, model.ErrChoiceAlreadyTaken) {
			log.Warn("Concurrent continuation lost the race")
			return nil, err
		}
		log.Error("Failed to persist continuation", zap.Error(err))
		return nil, fmt.Errorf("ошибка сохранения продолжения истории: %w", err)
	}

	log.Info("Story continued", zap.String("partID", part.ID.String()))
	return part, nil
}

// EndStory generates a closing segment from the current tip. The final part
// gets no choice options and the story refuses further continuation.
func (e *branchEngine) EndStory(ctx context.Context, storyID, userID uuid.UUID) (*model.StoryPart, error) {
	log := e.logger.With(zap.String("storyID", storyID.String()), zap.String("userID", userID.String()))
	log.Info("EndStory called")

	story, err := e.authorizeStory(ctx, storyID, userID)
	if err != nil {
		return nil, err
	}
	if story.IsEnded {
		return nil, model.ErrStoryEnded
	}
	if story.HeadPartID == nil {
		return nil, model.ErrNotFound
	}

	segment, err := e.gen.Generate(ctx, generator.WrapUpPrompt(), story.Genre, true)
	if err != nil {
		log.Warn("Generation failed for ending", zap.Error(err))
		return nil, err
	}

	part := &model.StoryPart{
		ID:             uuid.New(),
		StoryID:        storyID,
		Text:           segment.Story,
		PreviousPartID: story.HeadPartID,
		CreatedAt:      time.Now().UTC(),
	}

	err = e.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := e.stories.CreatePart(ctx, tx, part); err != nil {
			return err
		}
		return e.stories.SetHead(ctx, tx, storyID, part.ID, true)
	})
	if err != nil {
		log.Error("Failed to persist ending", zap.Error(err))
		return nil, fmt.Errorf("ошибка сохранения финала истории: %w", err)
	}

	log.Info("Story ended", zap.String("partID", part.ID.String()))
	return part, nil
}

// RenderTranscript rebuilds the linear path actually taken: each part's text in
// creation order, with the taken choice's text inserted between consecutive
// parts. Pure read.
func (e *branchEngine) RenderTranscript(ctx context.Context, storyID, userID uuid.UUID) ([]model.TranscriptSegment, error) {
	if _, err := e.authorizeStory(ctx, storyID, userID); err != nil {
		return nil, err
	}
	parts, err := e.stories.ListParts(ctx, e.db, storyID)
	if err != nil {
		return nil, err
	}
	resolved, err := e.stories.ListResolvedChoices(ctx, e.db, storyID)
	if err != nil {
		return nil, err
	}
	return buildTranscript(parts, resolved), nil
}

// GetStoryView returns the transcript together with the open choices of the tip.
func (e *branchEngine) GetStoryView(ctx context.Context, storyID, userID uuid.UUID) (*StoryView, error) {
	story, err := e.authorizeStory(ctx, storyID, userID)
	if err != nil {
		return nil, err
	}

	parts, err := e.stories.ListParts(ctx, e.db, storyID)
	if err != nil {
		return nil, err
	}
	resolved, err := e.stories.ListResolvedChoices(ctx, e.db, storyID)
	if err != nil {
		return nil, err
	}

	view := &StoryView{
		Story:      story,
		Transcript: buildTranscript(parts, resolved),
	}
	if story.HeadPartID != nil && !story.IsEnded {
		choices, err := e.stories.ListChoicesByPart(ctx, e.db, *story.HeadPartID)
		if err != nil {
			return nil, err
		}
		for _, c := range choices {
			if c.NextPartID == nil {
				view.Choices = append(view.Choices, c)
			}
		}
	}
	return view, nil
}

// AbandonStory deletes the story and everything hanging off it, but only after
// an explicit confirmation. Deletion is restricted to the owner.
func (e *branchEngine) AbandonStory(ctx context.Context, storyID, userID uuid.UUID, confirmed bool) error {
	log := e.logger.With(zap.String("storyID", storyID.String()), zap.String("userID", userID.String()))
	log.Info("AbandonStory called", zap.Bool("confirmed", confirmed))

	story, err := e.stories.GetStory(ctx, e.db, storyID)
	if err != nil {
		return err
	}
	if story.UserID != userID {
		log.Warn("Non-owner attempted to abandon story")
		return model.ErrForbidden
	}
	if !confirmed {
		return model.ErrConfirmationRequired
	}

	if err := e.stories.DeleteStory(ctx, e.db, storyID, userID); err != nil {
		return err
	}
	log.Info("Story abandoned")
	return nil
}

// ListStories returns the user's stories, most recent first.
func (e *branchEngine) ListStories(ctx context.Context, userID uuid.UUID) ([]model.Story, error) {
	return e.stories.ListStoriesByUser(ctx, e.db, userID)
}

// authorizeStory loads the story and verifies the acting user may operate on
// it: the owner always may; otherwise a registered participant of the story's
// session (if any) may. Violation yields ErrForbidden, which the HTTP layer
// deliberately collapses into a 404.
func (e *branchEngine) authorizeStory(ctx context.Context, storyID, userID uuid.UUID) (*model.Story, error) {
	story, err := e.stories.GetStory(ctx, e.db, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID == userID {
		return story, nil
	}

	session, err := e.sessions.GetSessionByStory(ctx, e.db, storyID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrForbidden
		}
		return nil, err
	}
	ok, err := e.sessions.IsParticipant(ctx, e.db, session.ID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrForbidden
	}
	return story, nil
}

func newChoices(partID uuid.UUID, texts []string, now time.Time) []model.ChoiceOption {
	choices := make([]model.ChoiceOption, 0, len(texts))
	for _, text := range texts {
		choices = append(choices, model.ChoiceOption{
			ID:          uuid.New(),
			StoryPartID: partID,
			Text:        text,
			CreatedAt:   now,
		})
	}
	return choices
}
