// Package ingest builds the plan chunk index from a local content directory
// of markdown plan pages.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telsona/plan-assist/internal/markdown"
	"github.com/telsona/plan-assist/internal/storage"
)

// Result contains statistics about an ingest run.
type Result struct {
	TotalPages      int
	TotalChunks     int
	SuccessfulPages int
	FailedPages     []FailedPage
	Duration        time.Duration
}

// FailedPage represents a page that failed to ingest.
type FailedPage struct {
	Path   string
	Reason string
}

// Embedder generates embeddings for chunk texts in batches.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store receives the indexed chunks.
type Store interface {
	ClearCollection(ctx context.Context) error
	UpsertChunks(ctx context.Context, docs []*storage.Document) error
}

// Pipeline orchestrates the full ingest process: walk pages, chunk, embed,
// store.
type Pipeline struct {
	chunker  *markdown.PageChunker
	embedder Embedder
	store    Store
	logger   *zap.Logger
}

// NewPipeline creates an ingest pipeline with the given components.
func NewPipeline(chunker *markdown.PageChunker, embedder Embedder, store Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// IngestDir clears the collection and rebuilds it from every .md page under
// dir. Pages carry their category and canonical URL in front matter.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content dir: %w", err)
	}
	result.TotalPages = len(paths)
	p.logger.Info("starting ingest", zap.String("dir", dir), zap.Int("pages", len(paths)))

	if err := p.store.ClearCollection(ctx); err != nil {
		return nil, fmt.Errorf("clear collection: %w", err)
	}

	for _, path := range paths {
		chunks, err := p.ingestPage(ctx, path)
		if err != nil {
			p.logger.Warn("page failed", zap.String("path", path), zap.Error(err))
			result.FailedPages = append(result.FailedPages, FailedPage{
				Path:   path,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessfulPages++
		result.TotalChunks += chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingest complete",
		zap.Int("pages", result.SuccessfulPages),
		zap.Int("chunks", result.TotalChunks),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// ingestPage chunks, embeds, and stores one plan page. Returns the number of
// chunks written.
func (p *Pipeline) ingestPage(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read page: %w", err)
	}

	front, body, err := splitFrontMatter(string(raw))
	if err != nil {
		return 0, err
	}

	page, err := p.chunker.ChunkPage([]byte(body))
	if err != nil {
		return 0, fmt.Errorf("chunk page: %w", err)
	}

	texts := make([]string, len(page.Chunks))
	for i, chunk := range page.Chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	docs := make([]*storage.Document, len(page.Chunks))
	for i, chunk := range page.Chunks {
		docs[i] = &storage.Document{
			ID:      uuid.New().String(),
			Content: chunk.Content,
			Metadata: storage.Metadata{
				Category:      front["category"],
				URL:           front["url"],
				SectionHeader: chunk.Header,
				ChunkType:     chunk.ChunkType,
				SectionIDs:    page.SectionIDs,
			},
			Embedding: embeddings[i],
		}
	}

	if err := p.store.UpsertChunks(ctx, docs); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}
	return len(docs), nil
}

// splitFrontMatter separates the "---"-delimited key: value header from the
// page body. Only category and url are expected; anything else is ignored.
func splitFrontMatter(raw string) (map[string]string, string, error) {
	front := map[string]string{}

	if !strings.HasPrefix(raw, "---\n") {
		return front, raw, nil
	}

	rest := raw[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated front matter")
	}

	for _, line := range strings.Split(rest[:end], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		front[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	body := rest[end+len("\n---"):]
	return front, strings.TrimPrefix(body, "\n"), nil
}
