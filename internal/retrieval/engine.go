// Package retrieval implements hybrid search over indexed plan content:
// vector similarity widened into a broad candidate pool, then reranked with
// category intent, product/URL matching, and keyword boosting.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/telsona/plan-assist/internal/storage"
)

const (
	// DefaultK is the result count when the caller doesn't specify one.
	DefaultK = 5

	// DefaultKeywordBoost is the per-term score increment.
	DefaultKeywordBoost = 0.15

	// candidateThreshold is the low similarity floor used when fetching the
	// widened candidate pool. Aggressive reranking downstream needs enough
	// raw candidates or it degenerates to reordering a near-empty set.
	candidateThreshold = 0.1

	// minCandidates is the smallest candidate pool fetched for reranking.
	minCandidates = 50

	// productBoost dominates realistic similarity deltas outright: an exact
	// product-name/URL hit must beat sibling products that share most of
	// their content (e.g. the UV and NX prepaid pages).
	productBoost = 10.0

	// productMissPenalty is applied to candidates that match none of the
	// active product filters.
	productMissPenalty = 0.5

	// overviewBoost slightly prefers broad overview chunks.
	overviewBoost = 0.05

	// faqPenalty down-ranks FAQ chunks for non-question queries.
	faqPenalty = 0.1

	// plainSearchThreshold is the similarity floor for SimilaritySearch.
	plainSearchThreshold = 0.3
)

// Matcher is the nearest-neighbor contract the engine searches against.
// *storage.PlanStore implements it; tests inject fakes.
type Matcher interface {
	Match(ctx context.Context, embedding []float32, threshold float64, count int) ([]storage.SearchResult, error)
}

// Options tune a hybrid search.
type Options struct {
	// CategoryFilter overrides auto-detected query intent.
	CategoryFilter string

	// MinSimilarity is accepted for API compatibility but not applied as a
	// hard cutoff; the candidateThreshold floor is applied at the store
	// query instead.
	MinSimilarity float64

	// KeywordBoost is the per-term score increment. Zero means
	// DefaultKeywordBoost.
	KeywordBoost float64

	// DisableOverviewBoost turns off the small preference for overview
	// chunks. The zero value keeps the preference on.
	DisableOverviewBoost bool
}

// HybridResult is a search hit with its rerank adjustment broken out.
// Similarity == OriginalSimilarity + Boost always holds. Because boosts can
// be large, Similarity is a ranking key only, not a probability - it is
// allowed to exceed 1.0.
type HybridResult struct {
	storage.SearchResult
	OriginalSimilarity float64
	Boost              float64
}

// Engine performs hybrid and plain similarity search. It is stateless;
// concurrent calls are independent.
type Engine struct {
	store  Matcher
	logger *zap.Logger
}

// NewEngine creates a retrieval engine over the given store.
func NewEngine(store Matcher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		logger: logger,
	}
}

// HybridSearch returns the top-k most relevant chunks for the query,
// combining vector similarity with category intent filtering and
// keyword/metadata boosting. The raw query text is used for intent detection
// and keyword scoring only - it is never embedded here.
//
// An empty candidate pool is a valid "no match" outcome (empty slice, nil
// error); store failures propagate to the caller.
func (e *Engine) HybridSearch(ctx context.Context, vector []float32, query string, k int, opts Options) ([]HybridResult, error) {
	if k <= 0 {
		k = DefaultK
	}
	keywordBoost := opts.KeywordBoost
	if keywordBoost == 0 {
		keywordBoost = DefaultKeywordBoost
	}

	detectedCategory := opts.CategoryFilter
	if detectedCategory == "" {
		detectedCategory = ExtractQueryIntent(query)
	}

	// Fetch a widened candidate set so reranking has material to work with.
	expandedK := max(k*10, minCandidates)

	candidates, err := e.store.Match(ctx, vector, candidateThreshold, expandedK)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	if len(candidates) == 0 {
		return []HybridResult{}, nil
	}

	// Category filtering is a soft hint, never a hard requirement: fall back
	// to the unfiltered set rather than returning nothing.
	filtered := candidates
	if detectedCategory != "" {
		var categoryFiltered []storage.SearchResult
		for _, doc := range candidates {
			if doc.Metadata.Category == detectedCategory {
				categoryFiltered = append(categoryFiltered, doc)
			}
		}

		if len(categoryFiltered) == 0 {
			e.logger.Info("no results for detected category, using all candidates",
				zap.String("category", detectedCategory),
				zap.String("query", query),
			)
		} else {
			filtered = categoryFiltered
		}
	}

	terms := queryTerms(query)
	productFilters := activeProductFilters(query)
	isQuestion := questionPattern.MatchString(strings.ToLower(query))

	reranked := make([]HybridResult, 0, len(filtered))
	for _, doc := range filtered {
		boost := scoreBoost(doc, terms, productFilters, keywordBoost, !opts.DisableOverviewBoost, isQuestion)

		result := HybridResult{
			SearchResult:       doc,
			OriginalSimilarity: doc.Similarity,
			Boost:              boost,
		}
		result.Similarity = doc.Similarity + boost
		reranked = append(reranked, result)
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Similarity > reranked[j].Similarity
	})

	if len(reranked) > k {
		reranked = reranked[:k]
	}
	return reranked, nil
}

// scoreBoost computes the rerank adjustment for a single candidate.
func scoreBoost(doc storage.SearchResult, terms, productFilters []string, keywordBoost float64, preferOverview, isQuestion bool) float64 {
	boost := 0.0
	contentLower := strings.ToLower(doc.Content)
	headerLower := strings.ToLower(doc.Metadata.SectionHeader)
	urlLower := strings.ToLower(doc.Metadata.URL)
	chunkType := doc.Metadata.ChunkType

	// Product/URL matching: if the query names a specific product and this
	// chunk's URL or header carries it, the boost must override everything
	// else; chunks for the wrong product are penalized.
	if len(productFilters) > 0 {
		isProductMatch := false
		for _, prodID := range productFilters {
			if urlContainsProduct(urlLower, headerLower, prodID) {
				boost += productBoost
				isProductMatch = true
			}
		}
		if !isProductMatch {
			boost -= productMissPenalty
		}
	}

	// Query terms in headers weigh more than terms in body text.
	for _, term := range terms {
		if strings.Contains(headerLower, term) {
			boost += keywordBoost * 2
		}
		if strings.Contains(contentLower, term) {
			boost += keywordBoost
		}
	}

	if preferOverview && chunkType == storage.ChunkTypeOverview {
		boost += overviewBoost
	}

	if chunkType == storage.ChunkTypeFAQ && !isQuestion {
		boost -= faqPenalty
	}

	return boost
}

// urlContainsProduct checks a product identifier against the chunk's URL path
// (with spaces hyphenated, removed, and as a path suffix) and section header.
func urlContainsProduct(urlLower, headerLower, prodID string) bool {
	return strings.Contains(urlLower, "/"+strings.ReplaceAll(prodID, " ", "-")) ||
		strings.Contains(urlLower, "/"+strings.ReplaceAll(prodID, " ", "")) ||
		strings.HasSuffix(urlLower, "/"+prodID) ||
		strings.Contains(headerLower, prodID)
}

// SimilaritySearch is plain nearest-neighbor search without the hybrid
// reranking pipeline, for callers that don't need it.
func (e *Engine) SimilaritySearch(ctx context.Context, vector []float32, k int) ([]storage.SearchResult, error) {
	if k <= 0 {
		k = DefaultK
	}

	results, err := e.store.Match(ctx, vector, plainSearchThreshold, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	return results, nil
}
