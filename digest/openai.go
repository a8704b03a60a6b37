package digest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// HTTPError is an OpenAI API failure without a dedicated sentinel.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai: http %d", e.StatusCode)
}

func (e *HTTPError) Is5xx() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
	// PromptTokenBudget caps the user prompt; zero disables trimming.
	PromptTokenBudget int
}

// OpenAISummarizer summarizes posts with a chat completion.
type OpenAISummarizer struct {
	client *openai.Client
	cfg    OpenAIConfig
	lg     *zap.Logger

	counterOnce sync.Once
	counter     tokenCounter
}

func NewOpenAISummarizer(cfg OpenAIConfig, lg *zap.Logger) *OpenAISummarizer {
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAISummarizer{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		lg:     lg.Named("openai"),
	}
}

func (s *OpenAISummarizer) tokens() tokenCounter {
	s.counterOnce.Do(func() {
		if s.counter == nil {
			s.counter = newTokenCounter(s.cfg.Model, s.lg)
		}
	})
	return s.counter
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, msgs []SourceMessage) (string, error) {
	if len(msgs) == 0 {
		return "", nil
	}
	var counter tokenCounter
	if s.cfg.PromptTokenBudget > 0 {
		counter = s.tokens()
	}
	prompt, dropped := buildPrompt(msgs, counter, s.cfg.PromptTokenBudget)
	if dropped > 0 {
		s.lg.Warn("Prompt over token budget, posts left out",
			zap.Int("dropped", dropped),
			zap.Int("budget", s.cfg.PromptTokenBudget),
		)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return "", s.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	s.lg.Info("Summary created",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAISummarizer) mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		s.lg.Error("OpenAI API error", zap.Int("status", status), zap.String("message", apiErr.Message))
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		s.lg.Error("OpenAI request error", zap.Int("status", status), zap.Error(reqErr.Err))
	default:
		return errors.Wrap(err, "openai request")
	}
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &HTTPError{StatusCode: status}
	}
}
