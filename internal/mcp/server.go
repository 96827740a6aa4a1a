// Package mcp exposes the query engine over the Model Context Protocol
// on stdio.
package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cratedex/cratedex/internal/query"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

//go:embed instructions.md
var instructions string

type Server struct {
	mcpServer *server.MCPServer
	engine    *query.Engine
}

func NewServer(engine *query.Engine, version string) *Server {
	s := &Server{engine: engine}

	mcpServer := server.NewMCPServer(
		"cratedex",
		version,
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("list_deps",
			mcp.WithDescription("List every dependency of the active workspace as name@version. Call this first to learn which crates can be queried."),
		),
		s.handleListDeps,
	)

	mcpServer.AddTool(
		mcp.NewTool("list_crate_items",
			mcp.WithDescription("List the crate root's public items with their canonical paths, kinds, and one-line summaries. Use get_module to descend into submodules. Generates documentation on first use, which may take a while."),
			mcp.WithString("crate",
				mcp.Description("Dependency name as reported by list_deps"),
				mcp.Required(),
			),
		),
		s.handleListCrateItems,
	)

	mcpServer.AddTool(
		mcp.NewTool("get_module",
			mcp.WithDescription("Show a module's documentation and its direct children grouped by kind. Omit `path` for the crate root."),
			mcp.WithString("crate",
				mcp.Description("Dependency name as reported by list_deps"),
				mcp.Required(),
			),
			mcp.WithString("path",
				mcp.Description("Canonical module path, e.g. \"tokio::sync\" (default: crate root)"),
			),
		),
		s.handleGetModule,
	)

	mcpServer.AddTool(
		mcp.NewTool("get_docs",
			mcp.WithDescription("Show the full documentation for one item: signature, docs, and members (fields, variants, methods). Accepts any canonical path returned by other tools."),
			mcp.WithString("crate",
				mcp.Description("Dependency name as reported by list_deps"),
				mcp.Required(),
			),
			mcp.WithString("path",
				mcp.Description("Canonical item path, e.g. \"serde::de::Deserialize\""),
				mcp.Required(),
			),
		),
		s.handleGetDocs,
	)

	mcpServer.AddTool(
		mcp.NewTool("search_docs",
			mcp.WithDescription("Fuzzy-search item paths, kinds, and doc summaries. With `crate`, searches that crate (building it if needed); without, searches all crates already in memory."),
			mcp.WithString("query",
				mcp.Description("Search query (item name, path fragment, or keyword)"),
				mcp.Required(),
			),
			mcp.WithString("crate",
				mcp.Description("Optional dependency name to scope the search to"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results (default 20)"),
			),
		),
		s.handleSearchDocs,
	)
}

func (s *Server) handleListDeps(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resultJSON, _ := json.MarshalIndent(s.engine.ListDeps(), "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleListCrateItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	crate, _ := args["crate"].(string)
	if crate == "" {
		return mcp.NewToolResultError("missing required parameter: crate"), nil
	}

	items, err := s.engine.ListCrateItems(ctx, crate)
	if err != nil {
		return toolError(err), nil
	}

	resultJSON, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func (s *Server) handleGetModule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	crate, _ := args["crate"].(string)
	if crate == "" {
		return mcp.NewToolResultError("missing required parameter: crate"), nil
	}
	path, _ := args["path"].(string)

	doc, err := s.engine.GetModule(ctx, crate, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(doc), nil
}

func (s *Server) handleGetDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	crate, _ := args["crate"].(string)
	if crate == "" {
		return mcp.NewToolResultError("missing required parameter: crate"), nil
	}
	path, _ := args["path"].(string)
	if path == "" {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	doc, err := s.engine.GetDocs(ctx, crate, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(doc), nil
}

func (s *Server) handleSearchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	q, _ := args["query"].(string)
	if q == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	crate, _ := args["crate"].(string)
	limit := 0
	if n, ok := args["limit"].(float64); ok {
		limit = int(n)
	}

	matches, err := s.engine.SearchDocs(ctx, q, crate, limit)
	if err != nil {
		return toolError(err), nil
	}

	resultJSON, _ := json.MarshalIndent(matches, "", "  ")
	return mcp.NewToolResultText(string(resultJSON)), nil
}

// toolError returns engine errors inline as tool results. Lookup misses
// carry suggestions in the message, so the caller can self-correct.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, query.ErrUnknownCrate) || errors.Is(err, query.ErrNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err))
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}
