// Package mcp exposes the plan retrieval engine to MCP clients.
package mcp

// SearchPlansInput defines the input parameters for the search_plans tool.
type SearchPlansInput struct {
	// Query is the natural-language search query.
	Query string `json:"query" jsonschema:"required,description=The search query about plans or services"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of results to return"`
}

// SearchPlansOutput contains the ranked search results.
type SearchPlansOutput struct {
	// Results is the list of matching plan chunks.
	Results []PlanResult `json:"results"`
	// Message provides informational context (e.g. "No matching plans found").
	Message string `json:"message,omitempty"`
}

// PlanResult is a single ranked chunk from hybrid search. Similarity is a
// ranking key, not a probability - reranking boosts can push it above 1.0.
type PlanResult struct {
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
	Category   string  `json:"category"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
}

// ListCategoriesInput takes no parameters.
type ListCategoriesInput struct{}

// ListCategoriesOutput lists the plan categories the index covers.
type ListCategoriesOutput struct {
	// Categories are the plan category labels usable as search hints.
	Categories []string `json:"categories"`
	// TotalChunks is the number of indexed content chunks.
	TotalChunks int `json:"total_chunks"`
}

// FetchPageInput defines the input parameters for the fetch_page tool.
type FetchPageInput struct {
	// URL is the canonical page link to retrieve.
	URL string `json:"url" jsonschema:"required,description=The canonical page URL to retrieve (e.g. https://example.com/prepaid/uv)"`
}

// FetchPageOutput contains the stitched page content.
type FetchPageOutput struct {
	// Content is the full markdown content of the page, all chunks stitched.
	Content string `json:"content"`
	// URL is the page link.
	URL string `json:"url"`
	// Category is the page's plan category.
	Category string `json:"category,omitempty"`
	// Found indicates whether any chunks exist for the page.
	Found bool `json:"found"`
}
