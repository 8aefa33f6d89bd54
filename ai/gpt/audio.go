package gpt

import (
	"FirstContact/internal/config"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Transcriber turns voice messages into text with Whisper.
type Transcriber struct {
	client *openai.Client
}

func NewTranscriber(conf *config.Config) *Transcriber {
	return &Transcriber{client: openai.NewClient(conf.OpenAI.ApiKey)}
}

// Transcribe reads audio from r; name carries the file extension the API
// uses to detect the format.
func (t *Transcriber) Transcribe(ctx context.Context, name string, r io.Reader) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: name,
		Reader:   r,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
