package gpt

import (
	"FirstContact/bot/chat"
	"FirstContact/internal/config"
	"FirstContact/internal/lib/sl"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const maxReplyTokens = 512

// Generator composes phase replies with the OpenAI chat completions API.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewGenerator(conf *config.Config, logger *slog.Logger) *Generator {
	return newGenerator(openai.NewClient(conf.OpenAI.ApiKey), conf, logger)
}

func newGenerator(client *openai.Client, conf *config.Config, logger *slog.Logger) *Generator {
	model := conf.OpenAI.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &Generator{
		client:  client,
		model:   model,
		timeout: conf.Generator.Timeout,
		limiter: NewLimiter(conf.Generator.RatePerSecond),
		log:     logger.With(sl.Module("openai.generator")),
	}
}

// NewLimiter paces outgoing model calls; non-positive rates disable pacing.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func (g *Generator) Generate(ctx context.Context, prompt string, vars map[string]string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	t1 := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: maxReplyTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: chat.RenderPrompt(prompt, vars)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices")
	}

	g.log.With(
		slog.Int("tokens", resp.Usage.TotalTokens),
		slog.Duration("duration", time.Since(t1)),
	).Debug("reply generated")

	return resp.Choices[0].Message.Content, nil
}
