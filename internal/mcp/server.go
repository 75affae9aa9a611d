package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/telsona/plan-assist/internal/server"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server  *mcp.Server
	service *server.Service
	fetcher PageFetcher
}

// Config holds server dependencies.
type Config struct {
	Service *server.Service
	Fetcher PageFetcher
	Stats   StatsProvider
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "plan-assist-server",
		Version: "v0.1.0",
	}

	srv := mcp.NewServer(impl, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_plans",
		Description: "Search prepaid, postpaid, fibre, roaming, and device plans. Returns ranked content chunks with page URLs. Use fetch_page for a full page.",
	}, makeSearchHandler(cfg.Service))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "fetch_page",
		Description: "Retrieve the full indexed content of a plan page by its canonical URL.",
	}, makeFetchHandler(cfg.Fetcher))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the plan categories covered by the index, with the total indexed chunk count.",
	}, makeListCategoriesHandler(cfg.Stats))

	return &Server{
		server:  srv,
		service: cfg.Service,
		fetcher: cfg.Fetcher,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
