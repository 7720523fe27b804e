package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storypath-server/internal/model"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storypath_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storypath_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
)

// Config holds the settings for the OpenAI-compatible backend.
type Config struct {
	APIKey  string
	BaseURL string // пусто - официальный API
	Model   string
	Timeout time.Duration
}

// openAIGenerator реализует Generator через go-openai.
type openAIGenerator struct {
	client  *openaigo.Client
	model   string
	timeout time.Duration
	enabled bool
	logger  *zap.Logger
}

// NewOpenAIGenerator создает генератор историй на базе OpenAI-совместимого API.
// Отсутствие ключа не является фатальным на старте: ошибка конфигурации
// возвращается при первом вызове Generate.
func NewOpenAIGenerator(cfg Config, logger *zap.Logger) Generator {
	g := &openAIGenerator{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		enabled: cfg.APIKey != "",
		logger:  logger.Named("OpenAIGenerator"),
	}
	if !g.enabled {
		g.logger.Warn("OpenAI API key not configured, story generation disabled")
		return g
	}

	clientConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	g.client = openaigo.NewClientWithConfig(clientConfig)
	return g
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt, genre string, isContinuation bool) (*Segment, error) {
	if !g.enabled {
		return nil, model.ErrAPIKeyMissing
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	fullPrompt := buildPrompt(prompt, genre, isContinuation)
	log := g.logger.With(zap.String("genre", genre), zap.Bool("continuation", isContinuation))

	startTime := time.Now()
	log.Debug("Sending request to AI", zap.Int("promptBytes", len(fullPrompt)))

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openaigo.ChatCompletionRequest{
			Model: g.model,
			Messages: []openaigo.ChatCompletionMessage{
				{
					Role:    openaigo.ChatMessageRoleUser,
					Content: fullPrompt,
				},
			},
		},
	)

	duration := time.Since(startTime)

	if err != nil {
		log.Error("AI API request failed", zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"model": g.model, "status": "error"}).Inc()
		return nil, fmt.Errorf("%w: %v", model.ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Error("AI API returned empty response", zap.Duration("duration", duration))
		aiRequestsTotal.With(prometheus.Labels{"model": g.model, "status": "error_empty_response"}).Inc()
		return nil, fmt.Errorf("%w: empty response", model.ErrGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": g.model, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": g.model}).Observe(duration.Seconds())

	segment, err := parseSegment(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	log.Debug("AI response parsed",
		zap.Duration("duration", duration),
		zap.Int("storyBytes", len(segment.Story)),
		zap.Int("choices", len(segment.Choices)))
	return segment, nil
}
