package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storypath-server/internal/model"
	"storypath-server/internal/repository"
)

// SessionView bundles a session with its story's view.
type SessionView struct {
	Session *model.Session `json:"session"`
	StoryView
}

// SessionService groups collaborators around one shared story. Continuation is
// the Branch Engine's operation under a membership check instead of ownership.
type SessionService interface {
	CreateSession(ctx context.Context, userID uuid.UUID, genre, prompt string) (*model.Session, *model.Story, error)
	JoinSession(ctx context.Context, sessionID, userID uuid.UUID) error
	ContinueSession(ctx context.Context, sessionID, choiceID, userID uuid.UUID) (*model.StoryPart, error)
	GetSessionView(ctx context.Context, sessionID, userID uuid.UUID) (*SessionView, error)
}

type sessionService struct {
	engine   BranchEngine
	sessions repository.SessionRepository
	db       repository.DBTX
	tx       TxRunner
	logger   *zap.Logger
}

// NewSessionService creates the collaboration layer on top of the branch engine.
func NewSessionService(
	engine BranchEngine,
	sessions repository.SessionRepository,
	db repository.DBTX,
	tx TxRunner,
	logger *zap.Logger,
) SessionService {
	return &sessionService{
		engine:   engine,
		sessions: sessions,
		db:       db,
		tx:       tx,
		logger:   logger.Named("SessionService"),
	}
}

// CreateSession starts a story and wraps it in a session with the creator as
// the first participant. The story is committed first; if the session insert
// fails the story survives as a regular single-player story.
func (s *sessionService) CreateSession(ctx context.Context, userID uuid.UUID, genre, prompt string) (*model.Session, *model.Story, error) {
	log := s.logger.With(zap.String("userID", userID.String()), zap.String("genre", genre))
	log.Info("CreateSession called")

	story, err := s.engine.StartStory(ctx, userID, genre, prompt)
	if err != nil {
		return nil, nil, err
	}

	session := &model.Session{
		ID:        uuid.New(),
		StoryID:   story.ID,
		CreatedAt: time.Now().UTC(),
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if err := s.sessions.CreateSession(ctx, tx, session); err != nil {
			return err
		}
		return s.sessions.AddParticipant(ctx, tx, session.ID, userID)
	})
	if err != nil {
		log.Error("Failed to persist session, story remains single-player",
			zap.String("storyID", story.ID.String()), zap.Error(err))
		return nil, nil, fmt.Errorf("ошибка создания сессии: %w", err)
	}

	log.Info("Session created", zap.String("sessionID", session.ID.String()))
	return session, story, nil
}

// JoinSession is idempotent: joining twice leaves exactly one membership row.
func (s *sessionService) JoinSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	log := s.logger.With(zap.String("sessionID", sessionID.String()), zap.String("userID", userID.String()))
	log.Info("JoinSession called")

	if _, err := s.sessions.GetSession(ctx, s.db, sessionID); err != nil {
		return err
	}
	if err := s.sessions.AddParticipant(ctx, s.db, sessionID, userID); err != nil {
		return err
	}
	log.Info("User joined session")
	return nil
}

// ContinueSession reuses the engine's continuation; the engine's authorization
// accepts any registered participant of the session's story.
func (s *sessionService) ContinueSession(ctx context.Context, sessionID, choiceID, userID uuid.UUID) (*model.StoryPart, error) {
	session, err := s.sessions.GetSession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	return s.engine.ContinueStory(ctx, session.StoryID, choiceID, userID)
}

// GetSessionView returns the shared story's view for a participant.
func (s *sessionService) GetSessionView(ctx context.Context, sessionID, userID uuid.UUID) (*SessionView, error) {
	session, err := s.sessions.GetSession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	view, err := s.engine.GetStoryView(ctx, session.StoryID, userID)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: session, StoryView: *view}, nil
}
