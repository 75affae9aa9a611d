// Package server exposes the retrieval engine over a narrow JSON contract:
// an HTTP API and a query service the realtime tool handler shares.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/telsona/plan-assist/internal/markdown"
	"github.com/telsona/plan-assist/internal/retrieval"
	"github.com/telsona/plan-assist/internal/transform"
)

// ErrEmptyQuery rejects missing or blank queries before any embedding or
// store call is attempted.
var ErrEmptyQuery = errors.New("query is required and must be a non-empty string")

// RetrievedResult is one ranked hit in the retrieval response.
type RetrievedResult struct {
	Rank             int     `json:"rank"` // 1-based
	Similarity       float64 `json:"similarity"`
	Category         string  `json:"category"`
	URL              string  `json:"url"`
	ContentMarkdown  string  `json:"contentMarkdown"`
	ContentPlainText string  `json:"contentPlainText"`
}

// RetrievalResponse is the JSON contract shared by the HTTP endpoint and the
// realtime search tool.
type RetrievalResponse struct {
	Query   string            `json:"query"`
	Results []RetrievedResult `json:"results"`
}

// AnswerResponse is a generated answer anchored to a page section.
type AnswerResponse struct {
	Query       string `json:"query"`
	Answer      string `json:"answer"`
	Source      string `json:"source,omitempty"`
	TargetURL   string `json:"targetUrl,omitempty"`
	BestSection string `json:"bestSection,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Embedder turns query text into a vector. Failures propagate as retrieval
// errors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Service wires the embedder, retrieval engine, and answer transformer into
// the request/response operations the HTTP handlers and realtime tools call.
type Service struct {
	embedder    Embedder
	engine      *retrieval.Engine
	transformer *transform.Transformer
	logger      *zap.Logger
}

// NewService creates a query service. The transformer may be nil when answer
// generation is not needed (e.g. the bare retrieval endpoint).
func NewService(embedder Embedder, engine *retrieval.Engine, transformer *transform.Transformer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder:    embedder,
		engine:      engine,
		transformer: transformer,
		logger:      logger,
	}
}

// Retrieve embeds the query and runs hybrid search, formatting the ranked
// results for the JSON contract. Validation happens before any embedding or
// store call.
func (s *Service) Retrieve(ctx context.Context, query string, k int) (*RetrievalResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.engine.HybridSearch(ctx, vector, query, k, retrieval.Options{})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	formatted := make([]RetrievedResult, 0, len(results))
	for i, result := range results {
		formatted = append(formatted, RetrievedResult{
			Rank:             i + 1,
			Similarity:       result.Similarity,
			Category:         result.Metadata.Category,
			URL:              result.Metadata.URL,
			ContentMarkdown:  result.Content,
			ContentPlainText: markdown.ToPlainText(result.Content),
		})
	}

	return &RetrievalResponse{
		Query:   query,
		Results: formatted,
	}, nil
}

// Answer retrieves the single best chunk for the query and transforms it into
// a human-friendly answer. Transform failures degrade inside the transformer;
// only validation and retrieval errors surface here.
func (s *Service) Answer(ctx context.Context, query string) (*AnswerResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if s.transformer == nil {
		return nil, errors.New("answer generation not configured")
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.engine.HybridSearch(ctx, vector, query, 1, retrieval.Options{})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		return &AnswerResponse{
			Query:  query,
			Answer: "I couldn't find anything about that in our plan pages.",
		}, nil
	}

	top := results[0]
	result := s.transformer.Transform(ctx, query, top.Content, transform.Metadata{
		URL:        top.Metadata.URL,
		Category:   top.Metadata.Category,
		SectionIDs: top.Metadata.SectionIDs,
	})

	return &AnswerResponse{
		Query:       query,
		Answer:      result.Answer,
		Source:      result.Source,
		TargetURL:   result.TargetURL,
		BestSection: result.BestSection,
		Category:    result.Category,
	}, nil
}
