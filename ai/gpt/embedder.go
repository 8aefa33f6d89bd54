package gpt

import (
	"FirstContact/internal/config"
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const embeddingBatch = 100

// Embedder turns text into vectors for the knowledge index.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewEmbedder(conf *config.Config) *Embedder {
	return newEmbedder(openai.NewClient(conf.OpenAI.ApiKey), conf.OpenAI.EmbeddingModel)
}

func newEmbedder(client *openai.Client, model string) *Embedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Embedder{client: client, model: openai.EmbeddingModel(model)}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatch {
		end := min(start+embeddingBatch, len(texts))
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: e.model,
		})
		if err != nil {
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), end-start)
		}
		batch := make([][]float32, end-start)
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
			}
			batch[d.Index] = d.Embedding
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
