package claude

import (
	"FirstContact/ai/gpt"
	"FirstContact/bot/chat"
	"FirstContact/internal/config"
	"FirstContact/internal/lib/sl"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

const (
	defaultModel   = "claude-sonnet-4-20250514"
	maxReplyTokens = 512
	systemPrompt   = "Ты вежливый ИИ-ассистент агентства. Отвечай на русском языке, кратко, без markdown."
)

// Generator composes phase replies with the Anthropic messages API.
type Generator struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewGenerator(conf *config.Config, logger *slog.Logger, opts ...option.RequestOption) (*Generator, error) {
	if conf.Anthropic.ApiKey == "" {
		return nil, fmt.Errorf("anthropic api key not set")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(conf.Anthropic.ApiKey)}, opts...)

	model := conf.Anthropic.Model
	if model == "" {
		model = defaultModel
	}

	return &Generator{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: conf.Generator.Timeout,
		limiter: gpt.NewLimiter(conf.Generator.RatePerSecond),
		log:     logger.With(sl.Module("anthropic.generator")),
	}, nil
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
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxReplyTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(chat.RenderPrompt(prompt, vars))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	g.log.With(
		slog.Int64("output_tokens", resp.Usage.OutputTokens),
		slog.Duration("duration", time.Since(t1)),
	).Debug("reply generated")

	return sb.String(), nil
}
