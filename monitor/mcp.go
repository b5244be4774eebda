package monitor

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/clearwatch/clears"
	"github.com/hazyhaar/clearwatch/kit"
)

// RegisterMCP registers the clearwatch tools on an MCP server.
func (m *Monitor) RegisterMCP(srv *mcp.Server) {
	m.registerClassifyTool(srv)
	m.registerPreviewTool(srv)
	m.registerTierTool(srv)
	m.registerRunsTool(srv)
}

// register wraps every tool endpoint with request logging.
func (m *Monitor) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	kit.RegisterMCPTool(srv, tool, kit.Logging(m.logger, tool.Name)(endpoint), decode)
}

// --- classify ---

type classifyReq struct {
	Value  string `json:"value"`
	Suffix string `json:"suffix"`
}

type classifyResp struct {
	Type       string `json:"type"`
	Recognized bool   `json:"recognized"`
	FullClear  bool   `json:"full_clear"`
}

func (m *Monitor) registerClassifyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "clearwatch_classify",
		Description: "Classify a clears sheet cell value, optionally in a [C] or [FC] map row.",
		InputSchema: kit.InputSchema(map[string]any{
			"value":  map[string]any{"type": "string", "description": "Cell value as shown in the sheet"},
			"suffix": map[string]any{"type": "string", "description": "Map row suffix: \"\", \"[C]\" or \"[FC]\""},
		}, []string{"value"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*classifyReq)
		ct := clears.ClassifyInRow(r.Value, r.Suffix)
		return classifyResp{Type: ct.String(), Recognized: ct.Recognized(), FullClear: ct.IsFullClear()}, nil
	}

	m.register(srv, tool, endpoint, kit.DecodeJSON[classifyReq]())
}

// --- preview ---

func (m *Monitor) registerPreviewTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "clearwatch_preview",
		Description: "Compute the notices the next run would send. Nothing is delivered or saved.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		notices, err := m.Preview(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"notices": notices}, nil
	}

	m.register(srv, tool, endpoint, kit.DecodeJSON[struct{}]())
}

// --- tier ---

type tierReq struct {
	Map string `json:"map"`
}

type tierResp struct {
	Map       string `json:"map"`
	Known     bool   `json:"known"`
	Base      string `json:"base,omitempty"`
	FullClear string `json:"full_clear,omitempty"`
}

func (m *Monitor) registerTierTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "clearwatch_tier",
		Description: "Look up the tier labels of a map on the tier page.",
		InputSchema: kit.InputSchema(map[string]any{
			"map": map[string]any{"type": "string", "description": "Map name, with or without its [C]/[FC] suffix"},
		}, []string{"map"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*tierReq)
		lookup := m.TierLookup()
		if lookup == nil {
			return nil, errors.New("no tier page configured")
		}
		name := clears.SplitMapLabel(r.Map).Name
		e, ok, err := lookup.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return tierResp{Map: name, Known: ok, Base: e.Base, FullClear: e.FullClear}, nil
	}

	m.register(srv, tool, endpoint, kit.DecodeJSON[tierReq]())
}

// --- runs ---

type runsReq struct {
	Limit int `json:"limit"`
}

func (m *Monitor) registerRunsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "clearwatch_runs",
		Description: "List recent runs, newest first.",
		InputSchema: kit.InputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum runs to return (default 20)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*runsReq)
		runs, err := m.Runs(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"runs": runs}, nil
	}

	m.register(srv, tool, endpoint, kit.DecodeJSON[runsReq]())
}
