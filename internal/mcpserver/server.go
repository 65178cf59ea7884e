// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/syncer"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp  *server.MCPServer
	st   *store.Store
	fs   storage.Provider
	db   index.DocumentIndex
	sync *syncer.Syncer
}

// New creates a new MCP server with all Ansuz tools registered.
// sync may be nil when no remote connection is configured.
func New(st *store.Store, fs storage.Provider, db index.DocumentIndex, sync *syncer.Syncer) *Server {
	s := &Server{st: st, fs: fs, db: db, sync: sync}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through synced wiki pages."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the full Markdown content of a synced page, including its provenance frontmatter."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page (e.g. guides/setup.md)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all synced pages or pages in a specific category."),
		mcp.WithString("category", mcp.Description("Optional category to list (empty for all)")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("sync_page",
		mcp.WithDescription("Re-fetch a tracked page from the remote wiki and refresh the local copy if the remote version advanced."),
		mcp.WithString("remote_id", mcp.Required(), mcp.Description("Remote page id")),
	), s.syncPage)

	// Resource: frontmatter format of synced files.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://frontmatter-format", "Synced Page Frontmatter Format",
			mcp.WithResourceDescription("Provenance frontmatter schema present in every synced Markdown file."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFrontmatterResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.fs.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := ""
	if c, err := req.RequireString("category"); err == nil {
		category = c
	}

	metas := s.st.List(category)
	var lines []string
	for _, m := range metas {
		lines = append(lines, fmt.Sprintf("%s\t%s\tv%d", m.RelativePath, m.Title, m.Version))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no pages tracked"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) syncPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	remoteID, err := req.RequireString("remote_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.sync == nil {
		return mcp.NewToolResultError("remote connection not configured"), nil
	}
	meta, outcome, err := s.sync.SyncOne(ctx, remoteID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (v%d)", outcome, meta.RelativePath, meta.Version)), nil
}

func (s *Server) readFrontmatterResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://frontmatter-format",
			MIMEType: "text/markdown",
			Text:     FrontmatterFormat,
		},
	}, nil
}
