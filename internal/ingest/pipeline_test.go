package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telsona/plan-assist/internal/markdown"
	"github.com/telsona/plan-assist/internal/storage"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, storage.VectorDimension)
	}
	return out, nil
}

type fakeStore struct {
	cleared  int
	clearErr error
	docs     []*storage.Document
}

func (f *fakeStore) ClearCollection(ctx context.Context) error {
	f.cleared++
	return f.clearErr
}

func (f *fakeStore) UpsertChunks(ctx context.Context, docs []*storage.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func writePage(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const uvPage = `---
category: prepaid
url: https://example.com/prepaid/uv
---
# UV Plan

Our entry-level prepaid plan.

## Pricing

Ten dollars for 30 days.
`

func TestIngestDir(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "uv.md", uvPage)
	writePage(t, dir, "notes.txt", "not a plan page")

	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	pipeline := NewPipeline(markdown.NewPageChunker(), embedder, store, nil)

	result, err := pipeline.IngestDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalPages)
	assert.Equal(t, 1, result.SuccessfulPages)
	assert.Equal(t, 2, result.TotalChunks)
	assert.Empty(t, result.FailedPages)
	assert.Equal(t, 1, store.cleared)
	assert.Equal(t, 1, embedder.calls)

	require.Len(t, store.docs, 2)
	for _, doc := range store.docs {
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, "prepaid", doc.Metadata.Category)
		assert.Equal(t, "https://example.com/prepaid/uv", doc.Metadata.URL)
		assert.Equal(t, []string{"uv-plan", "pricing"}, doc.Metadata.SectionIDs)
		assert.Len(t, doc.Embedding, storage.VectorDimension)
	}
	assert.Equal(t, "overview", store.docs[0].Metadata.ChunkType)
	assert.Equal(t, "Pricing", store.docs[1].Metadata.SectionHeader)
}

func TestIngestDir_BadPageIsRecordedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "good.md", uvPage)
	writePage(t, dir, "bad.md", "---\ncategory: prepaid\nnever terminated")

	pipeline := NewPipeline(markdown.NewPageChunker(), &fakeEmbedder{}, &fakeStore{}, nil)

	result, err := pipeline.IngestDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, 1, result.SuccessfulPages)
	require.Len(t, result.FailedPages, 1)
	assert.Contains(t, result.FailedPages[0].Path, "bad.md")
	assert.Contains(t, result.FailedPages[0].Reason, "front matter")
}

func TestIngestDir_EmbedFailureFailsPage(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "uv.md", uvPage)

	embedErr := errors.New("rate limited")
	store := &fakeStore{}
	pipeline := NewPipeline(markdown.NewPageChunker(), &fakeEmbedder{err: embedErr}, store, nil)

	result, err := pipeline.IngestDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Zero(t, result.SuccessfulPages)
	require.Len(t, result.FailedPages, 1)
	assert.Empty(t, store.docs)
}

func TestIngestDir_ClearFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "uv.md", uvPage)

	store := &fakeStore{clearErr: errors.New("collection locked")}
	pipeline := NewPipeline(markdown.NewPageChunker(), &fakeEmbedder{}, store, nil)

	_, err := pipeline.IngestDir(context.Background(), dir)
	require.Error(t, err)
}

func TestSplitFrontMatter(t *testing.T) {
	t.Run("with front matter", func(t *testing.T) {
		front, body, err := splitFrontMatter("---\ncategory: fibre\nurl: https://example.com/fibre\n---\n# Fibre\n")
		require.NoError(t, err)
		assert.Equal(t, "fibre", front["category"])
		assert.Equal(t, "https://example.com/fibre", front["url"])
		assert.Equal(t, "# Fibre\n", body)
	})

	t.Run("no front matter", func(t *testing.T) {
		front, body, err := splitFrontMatter("# Just content\n")
		require.NoError(t, err)
		assert.Empty(t, front)
		assert.Equal(t, "# Just content\n", body)
	})

	t.Run("unterminated", func(t *testing.T) {
		_, _, err := splitFrontMatter("---\ncategory: prepaid\n")
		assert.Error(t, err)
	})

	t.Run("value containing colon", func(t *testing.T) {
		front, _, err := splitFrontMatter("---\nurl: https://example.com:8080/x\n---\nbody")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com:8080/x", front["url"])
	})
}
