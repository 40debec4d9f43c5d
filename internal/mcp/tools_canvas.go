package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"chalkboard/internal/canvas"
)

func (s *Server) registerCanvasTools() {
	pointOpts := []mcp.ToolOption{
		mcp.WithNumber("x", mcp.Description("X coordinate"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y coordinate"), mcp.Required()),
		mcp.WithNumber("offsetX", mcp.Description("View offset X (default 0)")),
		mcp.WithNumber("offsetY", mcp.Description("View offset Y (default 0)")),
		mcp.WithNumber("scale", mcp.Description("Zoom scale (default 1)")),
	}

	// ── canvas_to_screen ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("canvas_to_screen",
		append([]mcp.ToolOption{
			mcp.WithDescription("Convert a canvas point to screen coordinates: screen = canvas*scale - offset"),
		}, pointOpts...)...,
	), s.handleCanvasToScreen)

	// ── screen_to_canvas ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("screen_to_canvas",
		append([]mcp.ToolOption{
			mcp.WithDescription("Convert a screen point to canvas coordinates: canvas = (screen + offset)/scale"),
		}, pointOpts...)...,
	), s.handleScreenToCanvas)

	// ── focus_card ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("focus_card",
		mcp.WithDescription("Compute the view offset that centers a card in the viewport at the chalkboard's zoom"),
		mcp.WithString("chalkboardId", mcp.Description("ID of the chalkboard"), mcp.Required()),
		mcp.WithString("cardId", mcp.Description("ID of the card on that chalkboard"), mcp.Required()),
	), s.handleFocusCard)
}

type pointArgs struct {
	point  canvas.Point
	offset canvas.Point
	scale  float64
}

func parsePointArgs(req mcp.CallToolRequest) (pointArgs, error) {
	args := req.GetArguments()
	if _, ok := args["x"].(float64); !ok {
		return pointArgs{}, fmt.Errorf("x is required")
	}
	if _, ok := args["y"].(float64); !ok {
		return pointArgs{}, fmt.Errorf("y is required")
	}
	return pointArgs{
		point:  canvas.Point{X: getFloat(args, "x", 0), Y: getFloat(args, "y", 0)},
		offset: canvas.Point{X: getFloat(args, "offsetX", 0), Y: getFloat(args, "offsetY", 0)},
		scale:  canvas.NormalizeScale(getFloat(args, "scale", 1)),
	}, nil
}

func (s *Server) handleCanvasToScreen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := parsePointArgs(req)
	if err != nil {
		return nil, err
	}
	return jsonResult(canvas.CanvasToScreen(p.point, p.offset, p.scale))
}

func (s *Server) handleScreenToCanvas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := parsePointArgs(req)
	if err != nil {
		return nil, err
	}
	return jsonResult(canvas.ScreenToCanvas(p.point, p.offset, p.scale))
}

func (s *Server) handleFocusCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID := req.GetString("chalkboardId", "")
	cardID := req.GetString("cardId", "")
	cb, ok := s.store.Chalkboard(boardID)
	if !ok {
		return nil, fmt.Errorf("chalkboard %s not found", boardID)
	}
	card, _, ok := cb.Card(cardID)
	if !ok {
		return nil, fmt.Errorf("card %s not found on chalkboard %s", cardID, boardID)
	}
	scale := cb.NormalizedScale()
	center := card.Frame().Origin.Add(card.Size.Center())
	return jsonResult(canvas.Transform{
		Offset: canvas.FocusOffset(center, s.store.Viewport(), scale),
		Scale:  scale,
	})
}
