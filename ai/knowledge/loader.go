package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"FirstContact/internal/lib/sl"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

var supportedExt = map[string]bool{
	".txt": true,
	".md":  true,
	".pdf": true,
}

// NewSplitter returns the recursive character splitter used for indexing.
func NewSplitter(chunkSize, chunkOverlap int) textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
}

// LoadDocuments reads every supported file in dir and splits it into chunks.
// A missing directory is created and yields no documents. Files that fail to
// load are logged and skipped.
func LoadDocuments(ctx context.Context, dir string, splitter textsplitter.TextSplitter, log *slog.Logger) ([]schema.Document, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create knowledge dir: %w", err)
		}
		log.Warn("knowledge dir created, add txt, md or pdf files", slog.String("dir", dir))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []schema.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !supportedExt[strings.ToLower(filepath.Ext(name))] {
			log.Info("skipped file", slog.String("file", name))
			continue
		}
		chunks, err := loadFile(ctx, filepath.Join(dir, name), splitter)
		if err != nil {
			log.Error("loading file", slog.String("file", name), sl.Err(err))
			continue
		}
		log.Debug("file loaded", slog.String("file", name), slog.Int("chunks", len(chunks)))
		docs = append(docs, chunks...)
	}
	return docs, nil
}

func loadFile(ctx context.Context, path string, splitter textsplitter.TextSplitter) (chunks []schema.Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var loader documentloaders.Loader
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		loader = documentloaders.NewPDF(f, info.Size())

		// the pdf reader panics on some malformed files
		defer func() {
			if r := recover(); r != nil {
				chunks, err = nil, fmt.Errorf("read pdf: %v", r)
			}
		}()
	} else {
		loader = documentloaders.NewText(f)
	}

	docs, err := loader.LoadAndSplit(ctx, splitter)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	chunks = make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		meta := map[string]any{"source": filepath.Base(path)}
		if page, ok := doc.Metadata["page"]; ok {
			meta["page"] = page
		}
		doc.Metadata = meta
		chunks = append(chunks, doc)
	}
	return chunks, nil
}
