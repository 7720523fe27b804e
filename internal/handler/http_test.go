package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storypath-server/internal/auth"
	"storypath-server/internal/handler"
	"storypath-server/internal/model"
	"storypath-server/internal/service"
	serviceMocks "storypath-server/internal/service/mocks"
)

// stubUserRepository удовлетворяет auth.UserRepository; пользовательские
// маршруты в этих тестах не вызываются.
type stubUserRepository struct{}

func (stubUserRepository) Create(ctx context.Context, user *model.User) error { return nil }
func (stubUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return nil, model.ErrUserNotFound
}
func (stubUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}
func (stubUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

type handlerFixture struct {
	engine   *serviceMocks.BranchEngine
	sessions *serviceMocks.SessionService
	tokens   *auth.TokenManager
	router   *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	f := &handlerFixture{
		engine:   new(serviceMocks.BranchEngine),
		sessions: new(serviceMocks.SessionService),
		tokens:   tokens,
		router:   gin.New(),
	}

	log := zap.NewNop()
	authHandler := auth.NewHandler(auth.NewService(stubUserRepository{}, tokens, log), log)
	storyHandler := handler.NewStoryHandler(f.engine, f.sessions, tokens, log)
	authHandler.RegisterRoutes(f.router)
	storyHandler.RegisterRoutes(f.router, authHandler)
	return f
}

func (f *handlerFixture) request(t *testing.T, method, path string, body any, userID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != nil {
		token, err := f.tokens.Generate(*userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestStartStoryHandler(t *testing.T) {
	userID := uuid.New()

	t.Run("valid request creates a story", func(t *testing.T) {
		f := newHandlerFixture(t)
		story := &model.Story{ID: uuid.New(), UserID: userID, Genre: "fantasy", Title: "Fantasy: a lost key"}
		f.engine.On("StartStory", mock.Anything, userID, "fantasy", "a lost key").Return(story, nil).Once()

		w := f.request(t, http.MethodPost, "/api/stories",
			gin.H{"genre": "fantasy", "prompt": "a lost key"}, &userID)

		require.Equal(t, http.StatusCreated, w.Code)
		var got model.Story
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, story.ID, got.ID)
		f.engine.AssertExpectations(t)
	})

	t.Run("missing fields are a bad request", func(t *testing.T) {
		f := newHandlerFixture(t)
		w := f.request(t, http.MethodPost, "/api/stories", gin.H{"genre": "fantasy"}, &userID)
		require.Equal(t, http.StatusBadRequest, w.Code)
		f.engine.AssertNotCalled(t, "StartStory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)
		w := f.request(t, http.MethodPost, "/api/stories",
			gin.H{"genre": "fantasy", "prompt": "a lost key"}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("generation failure maps to bad gateway", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("StartStory", mock.Anything, userID, "fantasy", "a lost key").
			Return(nil, model.ErrGenerationFailed).Once()

		w := f.request(t, http.MethodPost, "/api/stories",
			gin.H{"genre": "fantasy", "prompt": "a lost key"}, &userID)
		require.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("missing API key maps to service unavailable", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("StartStory", mock.Anything, userID, "fantasy", "a lost key").
			Return(nil, model.ErrAPIKeyMissing).Once()

		w := f.request(t, http.MethodPost, "/api/stories",
			gin.H{"genre": "fantasy", "prompt": "a lost key"}, &userID)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestContinueStoryHandler(t *testing.T) {
	userID := uuid.New()
	storyID := uuid.New()
	choiceID := uuid.New()
	path := fmt.Sprintf("/api/stories/%s/continue", storyID)

	t.Run("valid continuation returns the new part", func(t *testing.T) {
		f := newHandlerFixture(t)
		part := &model.StoryPart{ID: uuid.New(), StoryID: storyID, Text: "Next part."}
		f.engine.On("ContinueStory", mock.Anything, storyID, choiceID, userID).Return(part, nil).Once()

		w := f.request(t, http.MethodPost, path, gin.H{"choiceId": choiceID}, &userID)
		require.Equal(t, http.StatusCreated, w.Code)
		var got model.StoryPart
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, part.ID, got.ID)
	})

	t.Run("taken choice conflicts", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("ContinueStory", mock.Anything, storyID, choiceID, userID).
			Return(nil, model.ErrChoiceAlreadyTaken).Once()

		w := f.request(t, http.MethodPost, path, gin.H{"choiceId": choiceID}, &userID)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("foreign story is indistinguishable from a missing one", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("ContinueStory", mock.Anything, storyID, choiceID, userID).
			Return(nil, model.ErrForbidden).Once()

		w := f.request(t, http.MethodPost, path, gin.H{"choiceId": choiceID}, &userID)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ended story conflicts", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("ContinueStory", mock.Anything, storyID, choiceID, userID).
			Return(nil, model.ErrStoryEnded).Once()

		w := f.request(t, http.MethodPost, path, gin.H{"choiceId": choiceID}, &userID)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("malformed story id is a bad request", func(t *testing.T) {
		f := newHandlerFixture(t)
		w := f.request(t, http.MethodPost, "/api/stories/not-a-uuid/continue",
			gin.H{"choiceId": choiceID}, &userID)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStoryHandler(t *testing.T) {
	userID := uuid.New()
	storyID := uuid.New()

	t.Run("returns the view with transcript and choices", func(t *testing.T) {
		f := newHandlerFixture(t)
		view := &service.StoryView{
			Story: &model.Story{ID: storyID, UserID: userID, Genre: "fantasy"},
			Transcript: []model.TranscriptSegment{
				{Text: "Part one."},
				{Text: "Open the door", IsChoice: true},
				{Text: "Part two."},
			},
			Choices: []model.ChoiceOption{{ID: uuid.New(), Text: "Go on"}},
		}
		f.engine.On("GetStoryView", mock.Anything, storyID, userID).Return(view, nil).Once()

		w := f.request(t, http.MethodGet, "/api/stories/"+storyID.String(), nil, &userID)
		require.Equal(t, http.StatusOK, w.Code)
		var got service.StoryView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got.Transcript, 3)
		assert.True(t, got.Transcript[1].IsChoice)
		assert.Len(t, got.Choices, 1)
	})

	t.Run("unknown story is not found", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("GetStoryView", mock.Anything, storyID, userID).
			Return(nil, model.ErrNotFound).Once()

		w := f.request(t, http.MethodGet, "/api/stories/"+storyID.String(), nil, &userID)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAbandonStoryHandler(t *testing.T) {
	userID := uuid.New()
	storyID := uuid.New()

	t.Run("without confirm the request conflicts", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("AbandonStory", mock.Anything, storyID, userID, false).
			Return(model.ErrConfirmationRequired).Once()

		w := f.request(t, http.MethodDelete, "/api/stories/"+storyID.String(), nil, &userID)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("with confirm the story is deleted", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.engine.On("AbandonStory", mock.Anything, storyID, userID, true).Return(nil).Once()

		w := f.request(t, http.MethodDelete, "/api/stories/"+storyID.String()+"?confirm=true", nil, &userID)
		require.Equal(t, http.StatusOK, w.Code)
		f.engine.AssertExpectations(t)
	})
}

func TestEndStoryHandler(t *testing.T) {
	userID := uuid.New()
	storyID := uuid.New()

	f := newHandlerFixture(t)
	part := &model.StoryPart{ID: uuid.New(), StoryID: storyID, Text: "The end."}
	f.engine.On("EndStory", mock.Anything, storyID, userID).Return(part, nil).Once()

	w := f.request(t, http.MethodPost, "/api/stories/"+storyID.String()+"/end", nil, &userID)
	require.Equal(t, http.StatusCreated, w.Code)
	var got model.StoryPart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "The end.", got.Text)
}

func TestListStoriesHandler(t *testing.T) {
	userID := uuid.New()

	f := newHandlerFixture(t)
	stories := []model.Story{
		{ID: uuid.New(), UserID: userID, Genre: "fantasy", Title: "Fantasy: a lost key"},
		{ID: uuid.New(), UserID: userID, Genre: "horror", Title: "Horror: the attic"},
	}
	f.engine.On("ListStories", mock.Anything, userID).Return(stories, nil).Once()

	w := f.request(t, http.MethodGet, "/api/stories", nil, &userID)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Stories []model.Story `json:"stories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Stories, 2)
}

func TestSessionHandlers(t *testing.T) {
	userID := uuid.New()
	sessionID := uuid.New()

	t.Run("create session returns session and story", func(t *testing.T) {
		f := newHandlerFixture(t)
		story := &model.Story{ID: uuid.New(), UserID: userID, Genre: "fantasy"}
		session := &model.Session{ID: sessionID, StoryID: story.ID}
		f.sessions.On("CreateSession", mock.Anything, userID, "fantasy", "a lost key").
			Return(session, story, nil).Once()

		w := f.request(t, http.MethodPost, "/api/sessions",
			gin.H{"genre": "fantasy", "prompt": "a lost key"}, &userID)
		require.Equal(t, http.StatusCreated, w.Code)
		var got struct {
			Session *model.Session `json:"session"`
			Story   *model.Story   `json:"story"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, sessionID, got.Session.ID)
		assert.Equal(t, story.ID, got.Story.ID)
	})

	t.Run("join session succeeds", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.sessions.On("JoinSession", mock.Anything, sessionID, userID).Return(nil).Once()

		w := f.request(t, http.MethodPost, "/api/sessions/"+sessionID.String()+"/join", nil, &userID)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("join of unknown session is not found", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.sessions.On("JoinSession", mock.Anything, sessionID, userID).
			Return(model.ErrNotFound).Once()

		w := f.request(t, http.MethodPost, "/api/sessions/"+sessionID.String()+"/join", nil, &userID)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("continue session returns the new part", func(t *testing.T) {
		f := newHandlerFixture(t)
		choiceID := uuid.New()
		part := &model.StoryPart{ID: uuid.New(), Text: "Shared next."}
		f.sessions.On("ContinueSession", mock.Anything, sessionID, choiceID, userID).
			Return(part, nil).Once()

		w := f.request(t, http.MethodPost, "/api/sessions/"+sessionID.String()+"/continue",
			gin.H{"choiceId": choiceID}, &userID)
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("get session view", func(t *testing.T) {
		f := newHandlerFixture(t)
		view := &service.SessionView{
			Session: &model.Session{ID: sessionID, StoryID: uuid.New()},
			StoryView: service.StoryView{
				Story:      &model.Story{ID: uuid.New()},
				Transcript: []model.TranscriptSegment{{Text: "Part one."}},
			},
		}
		f.sessions.On("GetSessionView", mock.Anything, sessionID, userID).Return(view, nil).Once()

		w := f.request(t, http.MethodGet, "/api/sessions/"+sessionID.String(), nil, &userID)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	w := f.request(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
