package index

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gmameta/kit"
)

// RegisterMCP registers the index tools on an MCP server.
func (s *Store) RegisterMCP(srv *mcp.Server) {
	s.registerSearchTool(srv)
	s.registerGetTool(srv)
	s.registerStatsTool(srv)
	s.registerFailuresTool(srv)
}

// decodeInto returns an MCP argument decoder for request type T.
func decodeInto[T any]() func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r T
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
}

// --- search ---

func (s *Store) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gma_search",
		Description: "Full-text search over indexed addon headers (name, author, description, type, tags).",
		InputSchema: kit.InputSchema(map[string]any{
			"query":    map[string]any{"type": "string", "description": "Search terms; a trailing * makes a prefix match"},
			"category": map[string]any{"type": "string", "description": "Filter by addon type (e.g. weapon, map)"},
			"tag":      map[string]any{"type": "string", "description": "Filter by tag"},
			"limit":    map[string]any{"type": "integer", "description": "Max results (default 20)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Search(ctx, *req.(*SearchOptions))
	}
	kit.RegisterMCPTool(srv, tool, kit.Logging(s.logger, tool.Name)(endpoint), decodeInto[SearchOptions]())
}

// --- get ---

type getRequest struct {
	Path string `json:"path"`
}

func (s *Store) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gma_get",
		Description: "Return the indexed header and metadata slots of one addon file.",
		InputSchema: kit.InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Indexed file path"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getRequest)
		a, err := s.Get(ctx, r.Path)
		if err != nil {
			return nil, err
		}
		props, err := s.Properties(ctx, r.Path)
		if err != nil {
			return nil, err
		}
		return map[string]any{"addon": a, "properties": props.Snapshot()}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[getRequest]())
}

// --- stats ---

func (s *Store) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gma_stats",
		Description: "Index counters: addons by layout, total size, decode failures by kind, categories.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Stats(ctx)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[struct{}]())
}

// --- failures ---

type failuresRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Store) registerFailuresTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gma_failures",
		Description: "Recent decode failures (truncated, oversized or unreadable archives).",
		InputSchema: kit.InputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max entries (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Failures(ctx, req.(*failuresRequest).Limit)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[failuresRequest]())
}
