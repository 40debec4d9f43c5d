package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"chalkboard/internal/service"
)

// Server is the MCP server for the Chalkboard app.
// It exposes the store and the canvas transform math to AI agents.
type Server struct {
	mcp   *server.MCPServer
	store *service.Store
	// writeTimeout bounds how long a mutating tool waits for its slot write.
	writeTimeout time.Duration
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Store        *service.Store
	WriteTimeout time.Duration
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.WriteTimeout <= 0 {
		deps.WriteTimeout = 10 * time.Second
	}
	s := &Server{
		store:        deps.Store,
		writeTimeout: deps.WriteTimeout,
	}

	s.mcp = server.NewMCPServer(
		"chalkboard-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerChalkboardTools()
	s.registerCardTools()
	s.registerCanvasTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	logrus.Info("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// persisted waits until the store has written the mutation, so a GUI
// process watching the same database sees it promptly.
func (s *Server) persisted(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.store.WaitIdle(ctx); err != nil {
		return fmt.Errorf("wait for write: %w", err)
	}
	return nil
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
