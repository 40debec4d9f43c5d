package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"chalkboard/internal/canvas"
	"chalkboard/internal/domain"
)

func (s *Server) registerCardTools() {
	// ── list_unassigned_cards ──────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_unassigned_cards",
		mcp.WithDescription("List cards that do not belong to any chalkboard yet"),
	), s.handleListUnassignedCards)

	// ── create_unassigned_card ─────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_unassigned_card",
		mcp.WithDescription("Create a blank 300x200 card in the unassigned pool"),
	), s.handleCreateUnassignedCard)

	// ── delete_unassigned_card ─────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_unassigned_card",
		mcp.WithDescription("Delete a card from the unassigned pool"),
		mcp.WithString("cardId",
			mcp.Description("ID of the unassigned card"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteUnassignedCard)

	// ── add_card_to_chalkboard ─────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_card_to_chalkboard",
		mcp.WithDescription("Move an unassigned card onto a chalkboard. The card gets a new id and is placed "+
			"under the center of the given view (or the chalkboard's last view when scale is omitted)."),
		mcp.WithString("cardId",
			mcp.Description("ID of the unassigned card"),
			mcp.Required(),
		),
		mcp.WithString("chalkboardId",
			mcp.Description("ID of the destination chalkboard"),
			mcp.Required(),
		),
		mcp.WithNumber("offsetX", mcp.Description("View offset X")),
		mcp.WithNumber("offsetY", mcp.Description("View offset Y")),
		mcp.WithNumber("scale", mcp.Description("View zoom scale; omit to use the chalkboard's stored view")),
	), s.handleAddCardToChalkboard)

	// ── duplicate_card ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_card",
		mcp.WithDescription("Add a blank copy of a chalkboard card, offset slightly from the original"),
		mcp.WithString("chalkboardId",
			mcp.Description("ID of the chalkboard"),
			mcp.Required(),
		),
		mcp.WithString("cardId",
			mcp.Description("ID of the card on that chalkboard"),
			mcp.Required(),
		),
	), s.handleDuplicateCard)

	// ── set_card_locked ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_card_locked",
		mcp.WithDescription("Lock or unlock a card on a chalkboard"),
		mcp.WithString("chalkboardId",
			mcp.Description("ID of the chalkboard"),
			mcp.Required(),
		),
		mcp.WithString("cardId",
			mcp.Description("ID of the card on that chalkboard"),
			mcp.Required(),
		),
		mcp.WithBoolean("locked",
			mcp.Description("true to lock, false to unlock"),
			mcp.Required(),
		),
	), s.handleSetCardLocked)
}

func (s *Server) handleListUnassignedCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(summarizeCards(s.store.UnassignedCards()))
}

func (s *Server) handleCreateUnassignedCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	card := s.store.CreateUnassignedCard()
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return jsonResult(summarizeCards([]domain.Card{card})[0])
}

func (s *Server) handleDeleteUnassignedCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("cardId", "")
	if id == "" {
		return nil, fmt.Errorf("cardId is required")
	}
	if !s.store.DeleteUnassignedCard(id) {
		return textResult(fmt.Sprintf("Card %s was not in the unassigned pool", id)), nil
	}
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Card %s deleted", id)), nil
}

func (s *Server) handleAddCardToChalkboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardID := req.GetString("cardId", "")
	boardID := req.GetString("chalkboardId", "")
	if cardID == "" || boardID == "" {
		return nil, fmt.Errorf("cardId and chalkboardId are required")
	}
	card, ok := s.store.UnassignedCard(cardID)
	if !ok {
		return nil, fmt.Errorf("card %s is not in the unassigned pool", cardID)
	}
	args := req.GetArguments()
	offset := canvas.Point{X: getFloat(args, "offsetX", 0), Y: getFloat(args, "offsetY", 0)}
	moved, ok := s.store.AddCardToChalkboard(card, boardID, offset, getFloat(args, "scale", 0))
	if !ok {
		return nil, fmt.Errorf("chalkboard %s not found", boardID)
	}
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return jsonResult(summarizeCards([]domain.Card{moved})[0])
}

func (s *Server) handleDuplicateCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID := req.GetString("chalkboardId", "")
	cardID := req.GetString("cardId", "")
	if boardID == "" || cardID == "" {
		return nil, fmt.Errorf("chalkboardId and cardId are required")
	}
	cp, ok := s.store.DuplicateCardOnChalkboard(boardID, cardID)
	if !ok {
		return nil, fmt.Errorf("card %s not found on chalkboard %s", cardID, boardID)
	}
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return jsonResult(summarizeCards([]domain.Card{cp})[0])
}

func (s *Server) handleSetCardLocked(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID := req.GetString("chalkboardId", "")
	cardID := req.GetString("cardId", "")
	if boardID == "" || cardID == "" {
		return nil, fmt.Errorf("chalkboardId and cardId are required")
	}
	locked, _ := req.GetArguments()["locked"].(bool)
	if !s.store.SetCardLocked(boardID, cardID, locked) {
		return nil, fmt.Errorf("card %s not found on chalkboard %s", cardID, boardID)
	}
	if err := s.persisted(ctx); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Card %s locked=%t", cardID, locked)), nil
}
