//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore connects to a local Qdrant and ensures the collection
// exists. Skips the test if Qdrant is not running.
func setupTestStore(t *testing.T) *PlanStore {
	store, err := NewPlanStore("localhost", 6334)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = store.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return store
}

func uniformEmbedding(value float32) []float32 {
	embedding := make([]float32, VectorDimension)
	for i := range embedding {
		embedding[i] = value
	}
	return embedding
}

func TestChunkRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	url := "https://example.com/test/roundtrip-" + uuid.New().String()
	doc := &Document{
		ID:      uuid.New().String(),
		Content: "# SpeedStream\n\nUnlimited data at 3Mbps.",
		Metadata: Metadata{
			Category:      "prepaid",
			URL:           url,
			SectionHeader: "SpeedStream",
			ChunkType:     ChunkTypeSection,
			SectionIDs:    []string{"speedstream", "pricing"},
		},
		Embedding: uniformEmbedding(0.1),
	}

	err := store.UpsertChunks(ctx, []*Document{doc})
	require.NoError(t, err, "Failed to upsert chunk")

	results, err := store.Match(ctx, doc.Embedding, 0.1, 10)
	require.NoError(t, err, "Failed to match chunks")
	require.NotEmpty(t, results)

	var found *SearchResult
	for i := range results {
		if results[i].Metadata.URL == url {
			found = &results[i]
			break
		}
	}
	require.NotNil(t, found, "Upserted chunk not found in match results")

	assert.Equal(t, doc.Content, found.Content)
	assert.Equal(t, "prepaid", found.Metadata.Category)
	assert.Equal(t, "SpeedStream", found.Metadata.SectionHeader)
	assert.Equal(t, ChunkTypeSection, found.Metadata.ChunkType)
	assert.ElementsMatch(t, doc.Metadata.SectionIDs, found.Metadata.SectionIDs)
	assert.Greater(t, found.Similarity, 0.0)
	assert.LessOrEqual(t, found.Similarity, 1.0)
}

func TestFetchPage(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	url := "https://example.com/test/fetch-" + uuid.New().String()
	docs := []*Document{
		{
			ID:      uuid.New().String(),
			Content: "Overview content.",
			Metadata: Metadata{
				Category:  "fibre",
				URL:       url,
				ChunkType: ChunkTypeOverview,
			},
			Embedding: uniformEmbedding(0.2),
		},
		{
			ID:      uuid.New().String(),
			Content: "Pricing content.",
			Metadata: Metadata{
				Category:      "fibre",
				URL:           url,
				SectionHeader: "Pricing",
				ChunkType:     ChunkTypeSection,
			},
			Embedding: uniformEmbedding(0.3),
		},
	}

	err := store.UpsertChunks(ctx, docs)
	require.NoError(t, err)

	chunks, err := store.FetchPage(ctx, url)
	require.NoError(t, err, "Failed to fetch page chunks")
	assert.Len(t, chunks, 2)

	// An unknown URL fetches nothing, without error.
	chunks, err = store.FetchPage(ctx, "https://example.com/does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDimensionValidation(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	wrongDoc := &Document{
		ID:        uuid.New().String(),
		Content:   "Wrong dimension test",
		Metadata:  Metadata{Category: "prepaid", URL: "https://example.com/wrong"},
		Embedding: make([]float32, 512),
	}

	err := store.UpsertChunks(ctx, []*Document{wrongDoc})
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong embedding dimension")

	_, err = store.Match(ctx, make([]float32, 512), 0.1, 10)
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong query dimension")
}

func TestBatchUpsert(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	url := "https://example.com/test/batch-" + uuid.New().String()
	embedding := uniformEmbedding(0.5)

	// More than one batch of 100.
	docs := make([]*Document, 250)
	for i := range docs {
		docs[i] = &Document{
			ID:      uuid.New().String(),
			Content: "Batch chunk content",
			Metadata: Metadata{
				Category:  "postpaid",
				URL:       url,
				ChunkType: ChunkTypeSection,
			},
			Embedding: embedding,
		}
	}

	err := store.UpsertChunks(ctx, docs)
	require.NoError(t, err, "Failed to upsert batch of chunks")

	info, err := store.GetCollectionInfo(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.PointsCount, uint64(250))
}

func TestHealthCheck(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	assert.NoError(t, store.Health(context.Background()))
}
