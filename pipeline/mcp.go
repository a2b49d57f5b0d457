package pipeline

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/sportwire/kit"
)

// RegisterMCP registers the pipeline tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerSearchContent(srv)
	s.registerGetTrending(srv)
	s.registerPipelineStats(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Service) registerSearchContent(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "search_content",
		Description: "Full-text search over ingested sports content with filters, sorting and cursor pagination",
		InputSchema: inputSchema(map[string]any{
			"q":             map[string]any{"type": "string", "description": "Search text"},
			"keywords":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Sports keyword filter"},
			"domains":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Source domain filter"},
			"content_types": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Content type filter"},
			"min_quality":   map[string]any{"type": "number", "description": "Minimum quality score"},
			"sort":          map[string]any{"type": "string", "description": "relevance | date | quality | popularity"},
			"limit":         map[string]any{"type": "integer", "description": "Page size, max 100"},
			"cursor":        map[string]any{"type": "string", "description": "Opaque pagination cursor"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		q := r.(*SearchQuery)
		return s.search.Search(ctx, *q)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var q SearchQuery
		if err := json.Unmarshal(r.Params.Arguments, &q); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &q}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerGetTrending(srv *mcp.Server) {
	type req struct {
		Limit int `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "get_trending",
		Description: "List currently trending sports terms ordered by trend score",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max terms to return, default 10"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		limit := p.Limit
		if limit <= 0 {
			limit = 10
		}
		terms, err := s.store.ListTrending(ctx, limit)
		if err != nil {
			return nil, err
		}
		if terms == nil {
			terms = []*TrendingTerm{}
		}
		return map[string]any{"trending": terms}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if len(r.Params.Arguments) > 0 {
			if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerPipelineStats(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "pipeline_stats",
		Description: "Aggregate pipeline counters: crawl, extraction, dedupe, quality gate and queue depth",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Stats(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
