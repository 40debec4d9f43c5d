package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	chalkboardsURI      = "chalkboard://chalkboards"
	unassignedCardsURI  = "chalkboard://cards/unassigned"
	chalkboardURIPrefix = "chalkboard://chalkboard/"
)

func (s *Server) registerResources() {
	// ── chalkboard://chalkboards ───────────────────────
	s.mcp.AddResource(mcp.NewResource(
		chalkboardsURI,
		"All Chalkboards",
		mcp.WithMIMEType("application/json"),
	), s.handleChalkboardsResource)

	// ── chalkboard://cards/unassigned ──────────────────
	s.mcp.AddResource(mcp.NewResource(
		unassignedCardsURI,
		"Unassigned Cards",
		mcp.WithMIMEType("application/json"),
	), s.handleUnassignedCardsResource)

	// ── chalkboard://chalkboard/{id} ───────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			chalkboardURIPrefix+"{id}",
			"One Chalkboard",
		),
		s.handleChalkboardResource,
	)
}

func (s *Server) handleChalkboardsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	boards := s.store.Chalkboards()
	summaries := make([]chalkboardSummary, len(boards))
	for i, cb := range boards {
		summaries[i] = summarizeChalkboard(cb, false)
	}
	return jsonContents(chalkboardsURI, summaries)
}

func (s *Server) handleUnassignedCardsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(unassignedCardsURI, summarizeCards(s.store.UnassignedCards()))
}

func (s *Server) handleChalkboardResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := chalkboardIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract chalkboard id from URI: %s", uri)
	}
	cb, ok := s.store.Chalkboard(id)
	if !ok {
		return nil, fmt.Errorf("chalkboard %s not found", id)
	}
	return jsonContents(uri, summarizeChalkboard(cb, true))
}

// chalkboardIDFromURI extracts the id from "chalkboard://chalkboard/{id}".
func chalkboardIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, chalkboardURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
