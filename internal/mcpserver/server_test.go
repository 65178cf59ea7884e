package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/remote"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	st, fs := testutil.TestStore(t)
	db := testutil.TestDB(t)

	if _, err := st.Save(&remote.Document{
		ID:      "123",
		Title:   "Onboarding",
		Version: 1,
		Content: "<p>welcome aboard</p>",
	}, "default", "guides"); err != nil {
		t.Fatal(err)
	}

	srv := New(st, fs, db, nil)

	// Index the saved page so search works.
	meta, _ := st.FindByRemoteID("123")
	data, err := fs.Read(meta.RelativePath)
	if err != nil {
		t.Fatal(err)
	}
	if err := index.IndexFile(srv.db, *meta, data); err != nil {
		t.Fatal(err)
	}
	return srv
}

func toolReq(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", r.Content[0])
	}
	return tc.Text
}

func TestListPagesTool(t *testing.T) {
	srv := testServer(t)
	res, err := srv.listPages(context.Background(), toolReq("list_pages", nil))
	if err != nil {
		t.Fatalf("list_pages: %v", err)
	}
	out := resultText(t, res)
	if !strings.Contains(out, "guides/Onboarding.md") || !strings.Contains(out, "v1") {
		t.Errorf("output = %q", out)
	}
}

func TestReadPageTool(t *testing.T) {
	srv := testServer(t)
	res, err := srv.readPage(context.Background(), toolReq("read_page", map[string]any{"path": "guides/Onboarding.md"}))
	if err != nil {
		t.Fatalf("read_page: %v", err)
	}
	out := resultText(t, res)
	if !strings.Contains(out, "welcome aboard") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "remote_id:") {
		t.Errorf("frontmatter missing: %q", out)
	}
}

func TestReadPageToolMissing(t *testing.T) {
	srv := testServer(t)
	res, err := srv.readPage(context.Background(), toolReq("read_page", map[string]any{"path": "nope.md"}))
	if err != nil {
		t.Fatalf("read_page: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result")
	}
}

func TestSearchPagesTool(t *testing.T) {
	srv := testServer(t)
	res, err := srv.searchPages(context.Background(), toolReq("search_pages", map[string]any{"query": "welcome"}))
	if err != nil {
		t.Fatalf("search_pages: %v", err)
	}
	out := resultText(t, res)
	if !strings.Contains(out, "Onboarding") {
		t.Errorf("output = %q", out)
	}
}

func TestSyncPageToolWithoutRemote(t *testing.T) {
	srv := testServer(t)
	res, err := srv.syncPage(context.Background(), toolReq("sync_page", map[string]any{"remote_id": "123"}))
	if err != nil {
		t.Fatalf("sync_page: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result when remote is not configured")
	}
}
