package monitor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/clearwatch/tiers"
)

var testMCPImpl = &mcp.Implementation{Name: "clearwatch-test", Version: "0.1.0"}

func mcpSession(t *testing.T, m *Monitor) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	m.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCall(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result := mcpCall(t, session, name, args)
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Classify(t *testing.T) {
	session := mcpSession(t, newTestMonitor(t, previousState(), nil, nil))

	cases := []struct {
		value, suffix string
		want          classifyResp
	}{
		{"V", "", classifyResp{Type: "video", Recognized: true}},
		{"V", "[FC]", classifyResp{Type: "video_fc", Recognized: true, FullClear: true}},
		{"s1 s2 s3 & FC", "[C]", classifyResp{Type: "all_silvers_and_fc", Recognized: true, FullClear: true}},
		{"maybe", "", classifyResp{Type: "other"}},
	}
	for _, tc := range cases {
		text := mcpCallTool(t, session, "clearwatch_classify", map[string]any{"value": tc.value, "suffix": tc.suffix})
		var got classifyResp
		if err := json.Unmarshal([]byte(text), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != tc.want {
			t.Errorf("classify(%q, %q) = %+v, want %+v", tc.value, tc.suffix, got, tc.want)
		}
	}
}

func TestMCP_Preview(t *testing.T) {
	state := previousState()
	sender := &fakeSender{}
	session := mcpSession(t, newTestMonitor(t, state, sender, nil))

	text := mcpCallTool(t, session, "clearwatch_preview", map[string]any{})
	if !strings.Contains(text, "cleared MapB [C]!") {
		t.Errorf("preview = %s", text)
	}
	if len(sender.notices) != 0 || state.saves != 0 {
		t.Error("preview must not notify or save")
	}
}

func TestMCP_Tier(t *testing.T) {
	page := make([][]string, 10)
	page[9] = []string{"", "Summit", "Tier 2", "Tier 4"}
	m := New(Deps{
		Source: gridSource(testGrid()),
		State:  previousState(),
		Layout: testLayout,
		Logger: quietLogger(),
		Tiers: func() *tiers.Lookup {
			return tiers.New(func(context.Context) ([][]string, error) { return page, nil }, tiers.DefaultLayout())
		},
	})
	session := mcpSession(t, m)

	text := mcpCallTool(t, session, "clearwatch_tier", map[string]any{"map": "Summit [FC]"})
	var got tierResp
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := tierResp{Map: "Summit", Known: true, Base: "Tier 2", FullClear: "Tier 4"}
	if got != want {
		t.Errorf("tier = %+v, want %+v", got, want)
	}
}

func TestMCP_TierWithoutPage(t *testing.T) {
	// WHAT: Tool errors come back as IsError results, not protocol errors.
	session := mcpSession(t, newTestMonitor(t, previousState(), nil, nil))

	result := mcpCall(t, session, "clearwatch_tier", map[string]any{"map": "Summit"})
	if !result.IsError {
		t.Error("expected tool error")
	}
}

func TestMCP_RunsWithoutLog(t *testing.T) {
	session := mcpSession(t, newTestMonitor(t, previousState(), nil, nil))

	result := mcpCall(t, session, "clearwatch_runs", map[string]any{"limit": 5})
	if !result.IsError {
		t.Error("expected tool error")
	}
}
