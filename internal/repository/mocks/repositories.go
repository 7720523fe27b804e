// Package mocks contains testify mocks for the repository interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storypath-server/internal/model"
	"storypath-server/internal/repository"
)

// StoryRepository is a mock implementation of repository.StoryRepository.
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) CreateStory(ctx context.Context, q repository.DBTX, story *model.Story) error {
	return m.Called(ctx, q, story).Error(0)
}

func (m *StoryRepository) GetStory(ctx context.Context, q repository.DBTX, id uuid.UUID) (*model.Story, error) {
	args := m.Called(ctx, q, id)
	if s, ok := args.Get(0).(*model.Story); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) ListStoriesByUser(ctx context.Context, q repository.DBTX, userID uuid.UUID) ([]model.Story, error) {
	args := m.Called(ctx, q, userID)
	if s, ok := args.Get(0).([]model.Story); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) DeleteStory(ctx context.Context, q repository.DBTX, id, userID uuid.UUID) error {
	return m.Called(ctx, q, id, userID).Error(0)
}

func (m *StoryRepository) SetHead(ctx context.Context, q repository.DBTX, storyID, headPartID uuid.UUID, ended bool) error {
	return m.Called(ctx, q, storyID, headPartID, ended).Error(0)
}

func (m *StoryRepository) CreatePart(ctx context.Context, q repository.DBTX, part *model.StoryPart) error {
	return m.Called(ctx, q, part).Error(0)
}

func (m *StoryRepository) GetPart(ctx context.Context, q repository.DBTX, id uuid.UUID) (*model.StoryPart, error) {
	args := m.Called(ctx, q, id)
	if p, ok := args.Get(0).(*model.StoryPart); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) ListParts(ctx context.Context, q repository.DBTX, storyID uuid.UUID) ([]model.StoryPart, error) {
	args := m.Called(ctx, q, storyID)
	if p, ok := args.Get(0).([]model.StoryPart); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) CreateChoices(ctx context.Context, q repository.DBTX, choices []model.ChoiceOption) error {
	return m.Called(ctx, q, choices).Error(0)
}

func (m *StoryRepository) GetChoice(ctx context.Context, q repository.DBTX, id uuid.UUID) (*model.ChoiceOption, error) {
	args := m.Called(ctx, q, id)
	if c, ok := args.Get(0).(*model.ChoiceOption); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) ListChoicesByPart(ctx context.Context, q repository.DBTX, partID uuid.UUID) ([]model.ChoiceOption, error) {
	args := m.Called(ctx, q, partID)
	if c, ok := args.Get(0).([]model.ChoiceOption); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) ListResolvedChoices(ctx context.Context, q repository.DBTX, storyID uuid.UUID) ([]model.ChoiceOption, error) {
	args := m.Called(ctx, q, storyID)
	if c, ok := args.Get(0).([]model.ChoiceOption); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) TakeChoice(ctx context.Context, q repository.DBTX, choiceID, nextPartID uuid.UUID) error {
	return m.Called(ctx, q, choiceID, nextPartID).Error(0)
}

// SessionRepository is a mock implementation of repository.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) CreateSession(ctx context.Context, q repository.DBTX, session *model.Session) error {
	return m.Called(ctx, q, session).Error(0)
}

func (m *SessionRepository) GetSession(ctx context.Context, q repository.DBTX, id uuid.UUID) (*model.Session, error) {
	args := m.Called(ctx, q, id)
	if s, ok := args.Get(0).(*model.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) GetSessionByStory(ctx context.Context, q repository.DBTX, storyID uuid.UUID) (*model.Session, error) {
	args := m.Called(ctx, q, storyID)
	if s, ok := args.Get(0).(*model.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) AddParticipant(ctx context.Context, q repository.DBTX, sessionID, userID uuid.UUID) error {
	return m.Called(ctx, q, sessionID, userID).Error(0)
}

func (m *SessionRepository) IsParticipant(ctx context.Context, q repository.DBTX, sessionID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, q, sessionID, userID)
	return args.Bool(0), args.Error(1)
}
