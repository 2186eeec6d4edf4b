package mcp_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperengineering/regs"
	regsmcp "github.com/hyperengineering/regs/mcp"
)

func newTestServer(t *testing.T) (*regsmcp.Server, *regs.Client) {
	t.Helper()
	client, err := regs.New(regs.Config{LocalPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("regs.New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return regsmcp.NewServer(client, "test"), client
}

func callTool(t *testing.T, s *regsmcp.Server, name string, args map[string]any) *regsmcp.ToolResult {
	t.Helper()
	result, err := s.CallTool(context.Background(), name, args)
	if err != nil {
		t.Fatalf("CallTool(%s) returned error: %v", name, err)
	}
	if result == nil {
		t.Fatalf("CallTool(%s) returned nil result", name)
	}
	return result
}

func TestServer_ToolsList(t *testing.T) {
	server, _ := newTestServer(t)

	names := make(map[string]bool)
	for _, tool := range server.ListTools() {
		names[tool.Name] = true
	}
	for _, want := range []string{"regs_list", "regs_create", "regs_sync", "regs_stats", "regs_deliver", "regs_delete"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
}

func TestServer_ProtocolToolsList(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	init := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	server.HandleMessage(ctx, init)

	resp := server.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, tool := range server.ListTools() {
		if !strings.Contains(string(raw), `"`+tool.Name+`"`) {
			t.Errorf("tools/list response missing %s", tool.Name)
		}
	}
}

func TestTool_UnknownTool(t *testing.T) {
	server, _ := newTestServer(t)
	result := callTool(t, server, "regs_nope", nil)
	if !result.IsError {
		t.Error("unknown tool should be an error result")
	}
}

func TestTool_CreateListShow(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server, "regs_create", map[string]any{
		"title":    "Wedding suit",
		"category": "clothes",
		"deadline": "June 1",
	})
	if result.IsError {
		t.Fatalf("create failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "[R1]") || !strings.Contains(result.Content, "pending sync") {
		t.Errorf("create output = %q", result.Content)
	}

	result = callTool(t, server, "regs_list", map[string]any{})
	if result.IsError || !strings.Contains(result.Content, "[R1] Wedding suit (Clothes)") {
		t.Errorf("list output = %q", result.Content)
	}
	if !strings.Contains(result.Content, "Deadline: June 1") {
		t.Errorf("list should show deadline: %q", result.Content)
	}

	result = callTool(t, server, "regs_show", map[string]any{"record": "R1"})
	if result.IsError || !strings.Contains(result.Content, "Measurements: none yet") {
		t.Errorf("show output = %q", result.Content)
	}
}

func TestTool_CreateValidation(t *testing.T) {
	server, _ := newTestServer(t)

	if r := callTool(t, server, "regs_create", map[string]any{"category": "Others"}); !r.IsError {
		t.Error("missing title should fail")
	}
	r := callTool(t, server, "regs_create", map[string]any{"title": "Hat", "category": "Hats"})
	if !r.IsError || !strings.Contains(r.Content, "invalid category") {
		t.Errorf("bad category = %q", r.Content)
	}
}

func TestTool_ListFilters(t *testing.T) {
	server, client := newTestServer(t)
	ctx := context.Background()

	suit, _ := client.Create(ctx, "", regs.CreateParams{Title: "Suit", Category: regs.CategoryClothes})
	_, _ = client.Create(ctx, "", regs.CreateParams{Title: "Drapes", Category: regs.CategoryCurtains})
	_, _ = client.ToggleDelivered(ctx, "", suit.ID, true)

	r := callTool(t, server, "regs_list", map[string]any{"categories": []any{"Curtains"}})
	if strings.Contains(r.Content, "Suit") || !strings.Contains(r.Content, "Drapes") {
		t.Errorf("category filter = %q", r.Content)
	}

	r = callTool(t, server, "regs_list", map[string]any{"delivery_status": "delivered"})
	if !strings.Contains(r.Content, "Suit") || strings.Contains(r.Content, "Drapes") {
		t.Errorf("delivery filter = %q", r.Content)
	}

	r = callTool(t, server, "regs_list", map[string]any{"sync_status": "synced"})
	if r.Content != "No records match the filters." {
		t.Errorf("synced filter = %q", r.Content)
	}

	if r = callTool(t, server, "regs_list", map[string]any{"sort": "sideways"}); !r.IsError {
		t.Error("bad sort should fail")
	}
}

func TestTool_MeasureDeliverDelete(t *testing.T) {
	server, client := newTestServer(t)

	callTool(t, server, "regs_create", map[string]any{"title": "Drapes", "category": "Curtains"})

	r := callTool(t, server, "regs_measure", map[string]any{
		"record": "R1", "group": "dimensions", "field": "width", "value": 2.5,
	})
	if r.IsError || !strings.Contains(r.Content, "width = 2.5 yd") {
		t.Fatalf("measure = %q", r.Content)
	}

	r = callTool(t, server, "regs_show", map[string]any{"record": "R1"})
	if !strings.Contains(r.Content, "width: 2.5") {
		t.Errorf("show = %q", r.Content)
	}

	r = callTool(t, server, "regs_measure", map[string]any{
		"record": "R1", "group": "arms", "field": "sleeveLength", "value": 1.0,
	})
	if !r.IsError {
		t.Error("measurement outside the schema should fail")
	}

	r = callTool(t, server, "regs_deliver", map[string]any{"record": "R1"})
	if r.IsError || !strings.Contains(r.Content, "marked delivered") {
		t.Errorf("deliver = %q", r.Content)
	}

	r = callTool(t, server, "regs_delete", map[string]any{"record": "R1"})
	if r.IsError {
		t.Fatalf("delete = %q", r.Content)
	}
	if len(client.Records()) != 0 {
		t.Error("record not deleted")
	}

	r = callTool(t, server, "regs_deliver", map[string]any{"record": "R1"})
	if !r.IsError || !strings.Contains(r.Content, "not found") {
		t.Errorf("deliver after delete = %q", r.Content)
	}
}

func TestTool_RecordRequired(t *testing.T) {
	server, _ := newTestServer(t)
	for _, name := range []string{"regs_show", "regs_measure", "regs_deliver", "regs_delete"} {
		if r := callTool(t, server, name, map[string]any{}); !r.IsError {
			t.Errorf("%s without record should fail", name)
		}
	}
}

func TestTool_SyncOffline(t *testing.T) {
	server, _ := newTestServer(t)

	r := callTool(t, server, "regs_sync", nil)
	if r.IsError || !strings.Contains(r.Content, "Offline") {
		t.Errorf("sync = %q", r.Content)
	}
}
