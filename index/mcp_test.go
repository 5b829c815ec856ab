package index

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "index-test", Version: "0.1.0"}

func mcpSession(t *testing.T, s *Store) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	s.RegisterMCP(srv)

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

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %s", name, tc.Text)
	}
	return tc.Text
}

func TestMCP_Search(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	session := mcpSession(t, s)

	text := mcpCallTool(t, session, "gma_search", map[string]any{"query": "fun", "category": "map"})
	var res []*SearchResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(res) != 1 || res[0].Addon.Path != "/mc.gma" {
		t.Fatalf("results = %s", text)
	}
}

func TestMCP_Get(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	session := mcpSession(t, s)

	text := mcpCallTool(t, session, "gma_get", map[string]any{"path": "/cannon.gma"})
	var resp struct {
		Addon      Addon `json:"addon"`
		Properties map[string]struct {
			Texts []string `json:"texts"`
			State string   `json:"state"`
		} `json:"properties"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Addon.Name.Value != "Orbital Friendship Cannon" {
		t.Errorf("addon = %+v", resp.Addon)
	}
	kw := resp.Properties["System.Keywords"]
	if len(kw.Texts) != 2 || kw.State != "normal" {
		t.Errorf("keywords = %+v", kw)
	}
}

func TestMCP_Stats(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	session := mcpSession(t, s)

	var st Stats
	if err := json.Unmarshal([]byte(mcpCallTool(t, session, "gma_stats", map[string]any{})), &st); err != nil {
		t.Fatal(err)
	}
	if st.Addons != 4 {
		t.Errorf("stats = %+v", st)
	}
}

func TestMCP_Failures(t *testing.T) {
	s := testStore(t)
	session := mcpSession(t, s)

	text := mcpCallTool(t, session, "gma_failures", map[string]any{"limit": 5})
	if text != "[]" {
		t.Errorf("got %s", text)
	}
}
