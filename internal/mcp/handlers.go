package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/telsona/plan-assist/internal/retrieval"
	"github.com/telsona/plan-assist/internal/server"
	"github.com/telsona/plan-assist/internal/storage"
)

// makeSearchHandler creates the search_plans tool handler. It runs the same
// hybrid search the conversational feature uses: embedding, intent filtering,
// and keyword/metadata reranking.
func makeSearchHandler(svc *server.Service) func(
	context.Context, *mcp.CallToolRequest, SearchPlansInput,
) (*mcp.CallToolResult, SearchPlansOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchPlansInput) (
		*mcp.CallToolResult, SearchPlansOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		resp, err := svc.Retrieve(ctx, input.Query, maxResults)
		if err != nil {
			return nil, SearchPlansOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]PlanResult, 0, len(resp.Results))
		for _, r := range resp.Results {
			results = append(results, PlanResult{
				Rank:       r.Rank,
				Similarity: r.Similarity,
				Category:   r.Category,
				URL:        r.URL,
				Content:    r.ContentMarkdown,
			})
		}

		if len(results) == 0 {
			return nil, SearchPlansOutput{
				Results: []PlanResult{},
				Message: "No matching plans found. Try broader search terms.",
			}, nil
		}

		return nil, SearchPlansOutput{Results: results}, nil
	}
}

// PageFetcher retrieves every chunk indexed under a page URL.
// *storage.PlanStore implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]storage.SearchResult, error)
}

// StatsProvider reports index statistics. *storage.PlanStore implements it.
type StatsProvider interface {
	GetCollectionInfo(ctx context.Context) (*storage.CollectionInfo, error)
}

// makeListCategoriesHandler creates the list_categories tool handler.
func makeListCategoriesHandler(stats StatsProvider) func(
	context.Context, *mcp.CallToolRequest, ListCategoriesInput,
) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListCategoriesInput) (
		*mcp.CallToolResult, ListCategoriesOutput, error,
	) {
		info, err := stats.GetCollectionInfo(ctx)
		if err != nil {
			return nil, ListCategoriesOutput{}, fmt.Errorf("failed to get index stats: %w", err)
		}

		return nil, ListCategoriesOutput{
			Categories:  retrieval.Categories(),
			TotalChunks: int(info.PointsCount),
		}, nil
	}
}

// makeFetchHandler creates the fetch_page tool handler. It stitches all
// chunks for a page back together in stored order.
func makeFetchHandler(store PageFetcher) func(
	context.Context, *mcp.CallToolRequest, FetchPageInput,
) (*mcp.CallToolResult, FetchPageOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FetchPageInput) (
		*mcp.CallToolResult, FetchPageOutput, error,
	) {
		chunks, err := store.FetchPage(ctx, input.URL)
		if err != nil {
			return nil, FetchPageOutput{}, fmt.Errorf("failed to fetch page: %w", err)
		}

		if len(chunks) == 0 {
			return nil, FetchPageOutput{
				Found: false,
				URL:   input.URL,
			}, nil
		}

		parts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			parts = append(parts, chunk.Content)
		}

		return nil, FetchPageOutput{
			Content:  strings.Join(parts, "\n\n"),
			URL:      input.URL,
			Category: chunks[0].Metadata.Category,
			Found:    true,
		}, nil
	}
}
