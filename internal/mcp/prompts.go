package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("organize_cards",
		mcp.WithPromptDescription("Move cards from the unassigned pool onto a chalkboard"),
		mcp.WithArgument("chalkboardName",
			mcp.ArgumentDescription("Name of the chalkboard to place the cards on"),
			mcp.RequiredArgument(),
		),
	), s.handleOrganizeCardsPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_chalkboards",
		mcp.WithPromptDescription("Review all chalkboards and clean up empty or duplicate ones"),
	), s.handleTidyChalkboardsPrompt)
}

func (s *Server) handleOrganizeCardsPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["chalkboardName"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Organize unassigned cards onto: %s", name),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Place the unassigned cards on the chalkboard "%s". Follow these steps:

1. Use list_chalkboards to find the chalkboard. If none is named "%s", create it with create_chalkboard
2. Use list_unassigned_cards to see what is waiting in the pool
3. For each card, call add_card_to_chalkboard. Vary offsetX by -350 per card (scale 1) so the cards land side by side instead of stacking
4. Finish with get_chalkboard and report where each card ended up

Cards leave the pool once they are placed, so do not place the same card twice.`, name, name),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyChalkboardsPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Tidy up chalkboards",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Review my chalkboards. Follow these steps:

1. Use list_chalkboards and look for boards with no strokes and no cards
2. Look for boards that share a name and suggest distinct names with rename_chalkboard
3. List the empty boards and ask me before calling delete_chalkboard on any of them

Do not delete anything that has strokes or cards.`,
				},
			},
		},
	}, nil
}
