package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/researchhub/research-hub/internal/core/embeddings"
	"github.com/researchhub/research-hub/internal/platform/observability"
)

const (
	summaryTemperature = 0.3
	// Token budget per target word, generous enough that summaries are never
	// cut off mid-sentence.
	tokensPerTargetWord = 4

	titleModel     = openai.GPT3Dot5Turbo
	titleMaxTokens = 100

	rateLimiterBurst = 5
)

type openaiClient struct {
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
	circuit     *embeddings.CircuitBreaker
}

// NewOpenAI creates a chat-completion client backed by the OpenAI API.
func NewOpenAI(apiKey string, rps float64, logger *zerolog.Logger) Client {
	return &openaiClient{
		client:      openai.NewClient(apiKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		circuit:     embeddings.NewCircuitBreaker(embeddings.DefaultCircuitBreakerConfig(), logger),
	}
}

func (c *openaiClient) Summarize(ctx context.Context, text string, targetWords int, model string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: summarizeSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(summarizeUserPromptFmt, targetWords, text),
			},
		},
		MaxTokens:   targetWords * tokensPerTargetWord,
		Temperature: summaryTemperature,
	}

	return c.complete(ctx, req, TaskSummarize)
}

func (c *openaiClient) GenerateTitle(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: titleModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: titleSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(titleUserPromptFmt, prompt),
			},
		},
		MaxTokens: titleMaxTokens,
	}

	return c.complete(ctx, req, TaskTitle)
}

func (c *openaiClient) complete(ctx context.Context, req openai.ChatCompletionRequest, task string) (string, error) {
	if err := c.circuit.CheckCircuit(); err != nil {
		observability.LLMRequests.WithLabelValues(req.Model, task, "circuit_open").Inc()

		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	observability.LLMRequestDuration.WithLabelValues(req.Model, task).Observe(time.Since(start).Seconds())

	if err != nil {
		c.circuit.RecordFailure("openai")
		observability.LLMRequests.WithLabelValues(req.Model, task, "error").Inc()

		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	c.circuit.RecordSuccess()
	observability.LLMRequests.WithLabelValues(req.Model, task, "success").Inc()

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	return content, nil
}
