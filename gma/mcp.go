package gma

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/gmameta/kit"
)

// RegisterMCP registers the gma_decode and gma_detect tools on an MCP server.
func (d *Decoder) RegisterMCP(srv *mcp.Server) {
	d.registerDecodeTool(srv)
	d.registerDetectTool(srv)
}

type pathReq struct {
	Path string `json:"path"`
}

func decodePathReq(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r pathReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

// --- decode ---

func (d *Decoder) registerDecodeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gma_decode",
		Description: "Decode the metadata header (name, author, description, type, tags) of a Garry's Mod .gma addon archive.",
		InputSchema: kit.InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the .gma file"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pathReq)
		return d.DecodeFile(ctx, r.Path)
	}

	kit.RegisterMCPTool(srv, tool, kit.Logging(d.logger, tool.Name)(endpoint), decodePathReq)
}

// --- detect ---

func (d *Decoder) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gma_detect",
		Description: "Report whether a path looks like a .gma addon archive, by extension.",
		InputSchema: kit.InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to check"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*pathReq)
		return map[string]any{"gma": d.Detect(r.Path)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodePathReq)
}
