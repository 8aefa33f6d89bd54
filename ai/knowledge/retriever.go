package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"FirstContact/bot/chat"
	"FirstContact/internal/config"
	"FirstContact/internal/lib/sl"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever answers queries from the knowledge base. It stays not ready until
// an index is loaded or built.
type Retriever struct {
	embedder  Embedder
	model     string
	dir       string
	indexPath string
	chunkSize int
	overlap   int
	topK      int
	index     atomic.Pointer[Index]
	log       *slog.Logger
}

func NewRetriever(conf *config.Config, embedder Embedder, logger *slog.Logger) *Retriever {
	topK := conf.Knowledge.TopK
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		embedder:  embedder,
		model:     conf.OpenAI.EmbeddingModel,
		dir:       conf.Knowledge.Dir,
		indexPath: conf.Knowledge.IndexPath,
		chunkSize: conf.Knowledge.ChunkSize,
		overlap:   conf.Knowledge.ChunkOverlap,
		topK:      topK,
		log:       logger.With(sl.Module("knowledge")),
	}
}

func (r *Retriever) Ready() bool {
	return r.index.Load() != nil
}

// Init loads the persisted index, building a new one when none matches the
// configured embedding model.
func (r *Retriever) Init(ctx context.Context) error {
	x, err := LoadIndex(r.indexPath)
	switch {
	case err == nil && x.Model == r.model && x.Len() > 0:
		r.index.Store(x)
		r.log.Info("index loaded", slog.String("path", r.indexPath), slog.Int("chunks", x.Len()))
		return nil
	case err == nil:
		r.log.Warn("index outdated, rebuilding", slog.String("model", x.Model))
	case errors.Is(err, fs.ErrNotExist):
		r.log.Info("index not found, building", slog.String("path", r.indexPath))
	default:
		r.log.Warn("index unreadable, rebuilding", sl.Err(err))
	}
	return r.Build(ctx)
}

// Build indexes the knowledge dir and persists the result. With no documents
// the retriever stays not ready.
func (r *Retriever) Build(ctx context.Context) error {
	docs, err := LoadDocuments(ctx, r.dir, NewSplitter(r.chunkSize, r.overlap), r.log)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		r.log.Warn("no documents to index", slog.String("dir", r.dir))
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(docs))
	}

	x := &Index{Model: r.model, CreatedAt: time.Now()}
	for i, doc := range docs {
		source, _ := doc.Metadata["source"].(string)
		x.Chunks = append(x.Chunks, Chunk{Source: source, Text: doc.PageContent, Vector: vectors[i]})
	}

	if err = x.Save(r.indexPath); err != nil {
		r.log.Error("saving index", sl.Err(err))
	} else {
		r.log.Info("index saved", slog.String("path", r.indexPath), slog.Int("chunks", x.Len()))
	}
	r.index.Store(x)
	return nil
}

// Retrieve returns the top chunks for query joined by newlines.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, error) {
	x := r.index.Load()
	if x == nil {
		return "", chat.ErrRetrieverNotReady
	}
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	chunks := x.Search(vectors[0], r.topK)
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n"), nil
}
