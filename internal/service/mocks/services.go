// Package mocks contains testify mocks for the service interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storypath-server/internal/model"
	"storypath-server/internal/service"
)

// BranchEngine is a mock implementation of service.BranchEngine.
type BranchEngine struct {
	mock.Mock
}

func (m *BranchEngine) StartStory(ctx context.Context, userID uuid.UUID, genre, prompt string) (*model.Story, error) {
	args := m.Called(ctx, userID, genre, prompt)
	if s, ok := args.Get(0).(*model.Story); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BranchEngine) ContinueStory(ctx context.Context, storyID, choiceID, userID uuid.UUID) (*model.StoryPart, error) {
	args := m.Called(ctx, storyID, choiceID, userID)
	if p, ok := args.Get(0).(*model.StoryPart); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BranchEngine) EndStory(ctx context.Context, storyID, userID uuid.UUID) (*model.StoryPart, error) {
	args := m.Called(ctx, storyID, userID)
	if p, ok := args.Get(0).(*model.StoryPart); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BranchEngine) RenderTranscript(ctx context.Context, storyID, userID uuid.UUID) ([]model.TranscriptSegment, error) {
	args := m.Called(ctx, storyID, userID)
	if t, ok := args.Get(0).([]model.TranscriptSegment); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BranchEngine) GetStoryView(ctx context.Context, storyID, userID uuid.UUID) (*service.StoryView, error) {
	args := m.Called(ctx, storyID, userID)
	if v, ok := args.Get(0).(*service.StoryView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BranchEngine) AbandonStory(ctx context.Context, storyID, userID uuid.UUID, confirmed bool) error {
	return m.Called(ctx, storyID, userID, confirmed).Error(0)
}

func (m *BranchEngine) ListStories(ctx context.Context, userID uuid.UUID) ([]model.Story, error) {
	args := m.Called(ctx, userID)
	if s, ok := args.Get(0).([]model.Story); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionService is a mock implementation of service.SessionService.
type SessionService struct {
	mock.Mock
}

func (m *SessionService) CreateSession(ctx context.Context, userID uuid.UUID, genre, prompt string) (*model.Session, *model.Story, error) {
	args := m.Called(ctx, userID, genre, prompt)
	var session *model.Session
	var story *model.Story
	if s, ok := args.Get(0).(*model.Session); ok {
		session = s
	}
	if s, ok := args.Get(1).(*model.Story); ok {
		story = s
	}
	return session, story, args.Error(2)
}

func (m *SessionService) JoinSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	return m.Called(ctx, sessionID, userID).Error(0)
}

func (m *SessionService) ContinueSession(ctx context.Context, sessionID, choiceID, userID uuid.UUID) (*model.StoryPart, error) {
	args := m.Called(ctx, sessionID, choiceID, userID)
	if p, ok := args.Get(0).(*model.StoryPart); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionService) GetSessionView(ctx context.Context, sessionID, userID uuid.UUID) (*service.SessionView, error) {
	args := m.Called(ctx, sessionID, userID)
	if v, ok := args.Get(0).(*service.SessionView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
