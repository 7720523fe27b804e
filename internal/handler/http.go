package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storypath-server/internal/auth"
	"storypath-server/internal/service"
)

// StoryHandler обрабатывает HTTP запросы к историям и сессиям.
type StoryHandler struct {
	engine   service.BranchEngine
	sessions service.SessionService
	tokens   *auth.TokenManager
	logger   *zap.Logger
}

// NewStoryHandler создает новый StoryHandler.
func NewStoryHandler(
	engine service.BranchEngine,
	sessions service.SessionService,
	tokens *auth.TokenManager,
	logger *zap.Logger,
) *StoryHandler {
	return &StoryHandler{
		engine:   engine,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger.Named("StoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты историй и сессий.
func (h *StoryHandler) RegisterRoutes(r *gin.Engine, authHandler *auth.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := AuthMiddleware(h.tokens, h.logger)

	api := r.Group("/api", authMiddleware)
	{
		api.GET("/users/:id", authHandler.GetUserHandler)

		storiesGroup := api.Group("/stories")
		{
			storiesGroup.GET("", h.listStories)
			storiesGroup.POST("", h.startStory)
			storiesGroup.GET("/:id", h.getStory)
			storiesGroup.POST("/:id/continue", h.continueStory)
			storiesGroup.POST("/:id/end", h.endStory)
			storiesGroup.DELETE("/:id", h.abandonStory)
		}

		sessionsGroup := api.Group("/sessions")
		{
			sessionsGroup.POST("", h.createSession)
			sessionsGroup.GET("/:id", h.getSession)
			sessionsGroup.POST("/:id/join", h.joinSession)
			sessionsGroup.POST("/:id/continue", h.continueSession)
		}
	}
}

type startStoryRequest struct {
	Genre  string `json:"genre" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
}

type continueRequest struct {
	ChoiceID uuid.UUID `json:"choiceId" binding:"required"`
}

func (h *StoryHandler) listStories(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
		return
	}

	stories, err := h.engine.ListStories(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list stories", zap.Error(err))
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

func (h *StoryHandler) startStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
		return
	}

	var req startStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
		return
	}

	story, err := h.engine.StartStory(c.Request.Context(), userID, req.Genre, req.Prompt)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

func (h *StoryHandler) getStory(c *gin.Context) {
	userID, storyID, ok := h.idsFromRequest(c)
	if !ok {
		return
	}

	view, err := h.engine.GetStoryView(c.Request.Context(), storyID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StoryHandler) continueStory(c *gin.Context) {
	userID, storyID, ok := h.idsFromRequest(c)
	if !ok {
		return
	}

	var req continueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
		return
	}

	part, err := h.engine.ContinueStory(c.Request.Context(), storyID, req.ChoiceID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, part)
}

func (h *StoryHandler) endStory(c *gin.Context) {
	userID, storyID, ok := h.idsFromRequest(c)
	if !ok {
		return
	}

	part, err := h.engine.EndStory(c.Request.Context(), storyID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, part)
}

func (h *StoryHandler) abandonStory(c *gin.Context) {
	userID, storyID, ok := h.idsFromRequest(c)
	if !ok {
		return
	}

	confirmed := c.Query("confirm") == "true"
	if err := h.engine.AbandonStory(c.Request.Context(), storyID, userID, confirmed); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Story abandoned"})
}

func (h *StoryHandler) createSession(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
		return
	}

	var req startStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
		return
	}

	session, story, err := h.sessions.CreateSession(c.Request.Context(), userID, req.Genre, req.Prompt)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session, "story": story})
}

func (h *StoryHandler) getSession(c *gin.Context) {
	userID, sessionID, ok := h.idsFromRequest(c)
	if !ok {
		return
	}

	view, err := h.sessions.GetSessionView(c.Request.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StoryHandler) joinSession(c *gin.Context) {
	userID, sessionID, ok := h.idsFromRequest(c)
	if !ok {
		return
	}

	if err := h.sessions.JoinSession(c.Request.Context(), sessionID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined session"})
}

func (h *StoryHandler) continueSession(c *gin.Context) {
	userID, sessionID, ok := h.idsFromRequest(c)
	if !ok {
		return
	}

	var req continueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
		return
	}

	part, err := h.sessions.ContinueSession(c.Request.Context(), sessionID, req.ChoiceID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, part)
}

// idsFromRequest извлекает ID пользователя из контекста и ID ресурса из пути.
func (h *StoryHandler) idsFromRequest(c *gin.Context) (userID, resourceID uuid.UUID, ok bool) {
	userID, exists := userIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, APIError{Message: "Unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "Invalid id"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, resourceID, true
}
