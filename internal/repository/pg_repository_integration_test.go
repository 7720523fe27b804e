package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"storypath-server/internal/database"
	"storypath-server/internal/model"
	"storypath-server/internal/repository"
)

// RepositoryIntegrationSuite гоняет репозитории против настоящего PostgreSQL
// в контейнере. Запускается только без -short.
type RepositoryIntegrationSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
	stories     repository.StoryRepository
	sessions    repository.SessionRepository
}

func TestRepositoryIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositoryIntegrationSuite))
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("storypath_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	require.NoError(s.T(), database.ApplyMigrations(s.pool), "Failed to run migrations")

	log := zap.NewNop()
	s.stories = repository.NewPgStoryRepository(log)
	s.sessions = repository.NewPgSessionRepository(log)
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *RepositoryIntegrationSuite) createUser() uuid.UUID {
	s.T().Helper()
	id := uuid.New()
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, 'x')`,
		id, "user-"+id.String()[:8], id.String()[:8]+"@example.com")
	require.NoError(s.T(), err)
	return id
}

// createStoryTree создает историю с одной частью и тремя вариантами выбора.
func (s *RepositoryIntegrationSuite) createStoryTree(userID uuid.UUID) (*model.Story, *model.StoryPart, []model.ChoiceOption) {
	s.T().Helper()
	now := time.Now().UTC()

	story := &model.Story{ID: uuid.New(), UserID: userID, Genre: "fantasy", Title: "Fantasy: a lost key", CreatedAt: now}
	require.NoError(s.T(), s.stories.CreateStory(s.ctx, s.pool, story))

	part := &model.StoryPart{ID: uuid.New(), StoryID: story.ID, Text: "Part one.", CreatedAt: now}
	require.NoError(s.T(), s.stories.CreatePart(s.ctx, s.pool, part))

	choices := []model.ChoiceOption{
		{ID: uuid.New(), StoryPartID: part.ID, Text: "Open the door", CreatedAt: now},
		{ID: uuid.New(), StoryPartID: part.ID, Text: "Hide the key", CreatedAt: now.Add(time.Millisecond)},
		{ID: uuid.New(), StoryPartID: part.ID, Text: "Ask a stranger", CreatedAt: now.Add(2 * time.Millisecond)},
	}
	require.NoError(s.T(), s.stories.CreateChoices(s.ctx, s.pool, choices))
	require.NoError(s.T(), s.stories.SetHead(s.ctx, s.pool, story.ID, part.ID, false))

	return story, part, choices
}

func (s *RepositoryIntegrationSuite) TestStoryRoundTrip() {
	userID := s.createUser()
	story, part, choices := s.createStoryTree(userID)

	got, err := s.stories.GetStory(s.ctx, s.pool, story.ID)
	s.Require().NoError(err)
	s.Equal(story.Title, got.Title)
	s.Equal("fantasy", got.Genre)
	s.Require().NotNil(got.HeadPartID)
	s.Equal(part.ID, *got.HeadPartID)
	s.False(got.IsEnded)

	parts, err := s.stories.ListParts(s.ctx, s.pool, story.ID)
	s.Require().NoError(err)
	s.Require().Len(parts, 1)

	open, err := s.stories.ListChoicesByPart(s.ctx, s.pool, part.ID)
	s.Require().NoError(err)
	s.Require().Len(open, 3)
	s.Equal(choices[0].Text, open[0].Text)
}

func (s *RepositoryIntegrationSuite) TestGetMissingStory() {
	_, err := s.stories.GetStory(s.ctx, s.pool, uuid.New())
	s.Require().ErrorIs(err, model.ErrNotFound)
}

func (s *RepositoryIntegrationSuite) TestTakeChoiceIsExclusive() {
	userID := s.createUser()
	story, part, choices := s.createStoryTree(userID)

	second := &model.StoryPart{
		ID: uuid.New(), StoryID: story.ID, Text: "Part two.",
		PreviousPartID: &part.ID, CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.stories.CreatePart(s.ctx, s.pool, second))
	s.Require().NoError(s.stories.TakeChoice(s.ctx, s.pool, choices[0].ID, second.ID))

	// Повторная фиксация того же выбора проигрывает гонку.
	third := &model.StoryPart{
		ID: uuid.New(), StoryID: story.ID, Text: "An impostor part.",
		PreviousPartID: &part.ID, CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.stories.CreatePart(s.ctx, s.pool, third))
	err := s.stories.TakeChoice(s.ctx, s.pool, choices[0].ID, third.ID)
	s.Require().ErrorIs(err, model.ErrChoiceAlreadyTaken)

	got, err := s.stories.GetChoice(s.ctx, s.pool, choices[0].ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.NextPartID)
	s.Equal(second.ID, *got.NextPartID)

	resolved, err := s.stories.ListResolvedChoices(s.ctx, s.pool, story.ID)
	s.Require().NoError(err)
	s.Require().Len(resolved, 1)
	s.Equal(choices[0].ID, resolved[0].ID)
}

func (s *RepositoryIntegrationSuite) TestDeleteStoryCascades() {
	userID := s.createUser()
	story, part, choices := s.createStoryTree(userID)

	// Чужой пользователь удалить историю не может.
	err := s.stories.DeleteStory(s.ctx, s.pool, story.ID, uuid.New())
	s.Require().ErrorIs(err, model.ErrNotFound)
	_, err = s.stories.GetStory(s.ctx, s.pool, story.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.stories.DeleteStory(s.ctx, s.pool, story.ID, userID))

	_, err = s.stories.GetStory(s.ctx, s.pool, story.ID)
	s.Require().ErrorIs(err, model.ErrNotFound)
	_, err = s.stories.GetPart(s.ctx, s.pool, part.ID)
	s.Require().ErrorIs(err, model.ErrNotFound)
	_, err = s.stories.GetChoice(s.ctx, s.pool, choices[0].ID)
	s.Require().ErrorIs(err, model.ErrNotFound)
}

func (s *RepositoryIntegrationSuite) TestSessionParticipants() {
	owner := s.createUser()
	friend := s.createUser()
	story, _, _ := s.createStoryTree(owner)

	session := &model.Session{ID: uuid.New(), StoryID: story.ID, CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.sessions.CreateSession(s.ctx, s.pool, session))

	byStory, err := s.sessions.GetSessionByStory(s.ctx, s.pool, story.ID)
	s.Require().NoError(err)
	s.Equal(session.ID, byStory.ID)

	s.Require().NoError(s.sessions.AddParticipant(s.ctx, s.pool, session.ID, friend))
	// Повторное вступление ничего не ломает.
	s.Require().NoError(s.sessions.AddParticipant(s.ctx, s.pool, session.ID, friend))

	var count int
	err = s.pool.QueryRow(s.ctx,
		`SELECT COUNT(*) FROM session_participants WHERE session_id = $1 AND user_id = $2`,
		session.ID, friend).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)

	ok, err := s.sessions.IsParticipant(s.ctx, s.pool, session.ID, friend)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.sessions.IsParticipant(s.ctx, s.pool, session.ID, uuid.New())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RepositoryIntegrationSuite) TestListStoriesByUserOrder() {
	userID := s.createUser()
	first, _, _ := s.createStoryTree(userID)

	later := &model.Story{
		ID: uuid.New(), UserID: userID, Genre: "horror", Title: "Horror: the attic",
		CreatedAt: time.Now().UTC().Add(time.Second),
	}
	s.Require().NoError(s.stories.CreateStory(s.ctx, s.pool, later))

	stories, err := s.stories.ListStoriesByUser(s.ctx, s.pool, userID)
	s.Require().NoError(err)
	s.Require().Len(stories, 2)
	s.Equal(later.ID, stories[0].ID)
	s.Equal(first.ID, stories[1].ID)
}
