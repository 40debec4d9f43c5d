package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"chalkboard/internal/ink"
)

func (s *Server) registerChalkboardTools() {
	// ── list_chalkboards ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_chalkboards",
		mcp.WithDescription("List all chalkboards with their card counts and last viewed transform"),
	), s.handleListChalkboards)

	// ── get_chalkboard ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_chalkboard",
		mcp.WithDescription("Get one chalkboard including a summary of each card on it"),
		mcp.WithString("chalkboardId",
			mcp.Description("ID of the chalkboard"),
			mcp.Required(),
		),
	), s.handleGetChalkboard)

	// ── create_chalkboard ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_chalkboard",
		mcp.WithDescription("Create a new empty chalkboard. Its view starts centered on the canvas."),
		mcp.WithString("name",
			mcp.Description("Name of the new chalkboard"),
			mcp.Required(),
		),
	), s.handleCreateChalkboard)

	// ── rename_chalkboard ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rename_chalkboard",
		mcp.WithDescription("Rename a chalkboard"),
		mcp.WithString("chalkboardId",
			mcp.Description("ID of the chalkboard"),
			mcp.Required(),
		),
		mcp.WithString("name",
			mcp.Description("New name"),
			mcp.Required(),
		),
	), s.handleRenameChalkboard)

	// ── delete_chalkboard ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_chalkboard",
		mcp.WithDescription("Delete a chalkboard and every card on it"),
		mcp.WithString("chalkboardId",
			mcp.Description("ID of the chalkboard"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteChalkboard)
}

func (s *Server) handleListChalkboards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boards := s.store.Chalkboards()
	out := make([]chalkboardSummary, len(boards))
	for i, cb := range boards {
		out[i] = summarizeChalkboard(cb, false)
	}
	return jsonResult(out)
}

func (s *Server) handleGetChalkboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("chalkboardId", "")
	if id == "" {
		return nil, fmt.Errorf("chalkboardId is required")
	}
	cb, ok := s.store.Chalkboard(id)
	if !ok {
		return nil, fmt.Errorf("chalkboard %s not found", id)
	}
	return jsonResult(summarizeChalkboard(cb, true))
}

func (s *Server) handleCreateChalkboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	cb := s.store.CreateChalkboard(name, ink.Drawing{}, nil)
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return jsonResult(summarizeChalkboard(cb, false))
}

func (s *Server) handleRenameChalkboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("chalkboardId", "")
	name := req.GetString("name", "")
	if id == "" || name == "" {
		return nil, fmt.Errorf("chalkboardId and name are required")
	}
	if !s.store.RenameChalkboard(id, name) {
		return nil, fmt.Errorf("chalkboard %s not found", id)
	}
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Chalkboard %s renamed to %q", id, name)), nil
}

func (s *Server) handleDeleteChalkboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("chalkboardId", "")
	if id == "" {
		return nil, fmt.Errorf("chalkboardId is required")
	}
	if !s.store.DeleteChalkboard(id) {
		return textResult(fmt.Sprintf("Chalkboard %s did not exist", id)), nil
	}
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Chalkboard %s deleted", id)), nil
}
