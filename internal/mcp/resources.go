package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	connectionsURI    = "datalink://connections"
	schemaURIPrefix   = "datalink://schema/"
	schemaURITemplate = schemaURIPrefix + "{connectionId}"
)

func (s *Server) registerResources() {
	// ── datalink://connections ─────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		connectionsURI,
		"Saved Connections",
		mcp.WithMIMEType("application/json"),
	), s.handleConnectionsResource)

	// ── datalink://schema/{connectionId} ───────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			schemaURITemplate,
			"Schema of a Connection",
		),
		s.handleSchemaResource,
	)
}

func (s *Server) handleConnectionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	conns, err := s.connections.List(ctx)
	if err != nil {
		return nil, err
	}

	type connectionSummary struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		IsActive bool   `json:"isActive"`
	}

	summaries := make([]connectionSummary, 0, len(conns))
	for _, c := range conns {
		summaries = append(summaries, connectionSummary{ID: c.ID, Name: c.Name, Type: string(c.Kind), IsActive: c.IsActive})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      connectionsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleSchemaResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	connID := connectionIDFromURI(uri)
	if connID == "" {
		return nil, fmt.Errorf("could not extract connectionId from URI: %s", uri)
	}

	snap, err := s.schema.GetSchema(ctx, connID)
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(snap, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// connectionIDFromURI extracts the id from "datalink://schema/{id}".
func connectionIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, schemaURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
