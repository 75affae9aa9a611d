package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// PlanStore wraps the Qdrant client with connection management and health checks.
type PlanStore struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewPlanStore creates a new Qdrant client with health validation.
// It performs a health check with retry on startup and fails fast if Qdrant
// is unreachable.
func NewPlanStore(host string, port int) (*PlanStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &PlanStore{
		client: client,
		host:   host,
		port:   port,
	}

	ctx := context.Background()
	if err := store.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *PlanStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *PlanStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection ensures the plan chunk collection exists with proper
// configuration: 768-dimension cosine vectors and payload indexes on the
// filterable metadata fields. Idempotent - safe to call multiple times.
func (s *PlanStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes creates indexes for the filterable metadata fields.
// Without these, category filtering degrades to a full scan.
func (s *PlanStore) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"category",   // Intent-based filtering
		"url",        // Page lookup for fetch_page
		"chunk_type", // overview / faq / section
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// ClearCollection deletes all points in the collection. Administrative
// operation used before re-ingesting; never called at query time.
func (s *PlanStore) ClearCollection(ctx context.Context) error {
	err := s.client.DeleteCollection(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *PlanStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *PlanStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// UpsertChunks stores plan chunks with embeddings in Qdrant.
// Chunks are batched in groups of 100 for performance.
func (s *PlanStore) UpsertChunks(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	for i, doc := range docs {
		if len(doc.Embedding) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(doc.Embedding), VectorDimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := docs[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, doc := range batch {
			sectionIDs := make([]interface{}, len(doc.Metadata.SectionIDs))
			for k, id := range doc.Metadata.SectionIDs {
				sectionIDs[k] = id
			}

			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(doc.ID),
				Vectors: qdrant.NewVectors(doc.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"content":        doc.Content,
					"category":       doc.Metadata.Category,
					"url":            doc.Metadata.URL,
					"section_header": doc.Metadata.SectionHeader,
					"chunk_type":     doc.Metadata.ChunkType,
					"section_ids":    sectionIDs,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// Match performs vector similarity search over plan chunks. Results are
// ordered by cosine similarity descending; hits below threshold are excluded
// by the store. This is the raw nearest-neighbor primitive the retrieval
// engine reranks on top of.
func (s *PlanStore) Match(ctx context.Context, embedding []float32, threshold float64, count int) ([]SearchResult, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), VectorDimension)
	}

	scoreThreshold := float32(threshold)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		ScoreThreshold: &scoreThreshold,
		Limit:          qdrant.PtrOf(uint64(count)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to match chunks: %w", err)
	}

	matches := make([]SearchResult, 0, len(results))
	for _, result := range results {
		matches = append(matches, SearchResult{
			Content:    result.Payload["content"].GetStringValue(),
			Metadata:   payloadMetadata(result.Payload),
			Similarity: float64(result.Score),
		})
	}

	return matches, nil
}

// FetchPage returns every chunk indexed under the given page URL, in stored
// order. Used by the MCP fetch_page tool; no vector search involved.
func (s *PlanStore) FetchPage(ctx context.Context, url string) ([]SearchResult, error) {
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("url", url),
			},
		},
		Limit:       qdrant.PtrOf(uint32(100)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page chunks: %w", err)
	}

	chunks := make([]SearchResult, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, SearchResult{
			Content:  result.Payload["content"].GetStringValue(),
			Metadata: payloadMetadata(result.Payload),
		})
	}

	return chunks, nil
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	PointsCount uint64
}

// GetCollectionInfo retrieves collection statistics including total points count.
func (s *PlanStore) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &CollectionInfo{
		PointsCount: collection.GetPointsCount(),
	}, nil
}

// payloadMetadata rebuilds chunk metadata from a Qdrant payload map.
func payloadMetadata(payload map[string]*qdrant.Value) Metadata {
	var sectionIDs []string
	if val, ok := payload["section_ids"]; ok && val.GetListValue() != nil {
		for _, v := range val.GetListValue().Values {
			sectionIDs = append(sectionIDs, v.GetStringValue())
		}
	}

	return Metadata{
		Category:      payload["category"].GetStringValue(),
		URL:           payload["url"].GetStringValue(),
		SectionHeader: payload["section_header"].GetStringValue(),
		ChunkType:     payload["chunk_type"].GetStringValue(),
		SectionIDs:    sectionIDs,
	}
}
