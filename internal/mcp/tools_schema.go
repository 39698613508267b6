package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSchemaTools() {
	s.mcp.AddTool(mcp.NewTool("get_schema",
		mcp.WithDescription("Get tables, views and procedures of a connection, or the columns of one table"),
		mcp.WithString("connectionId", mcp.Description("Connection ID (optional, defaults to the active connection)")),
		mcp.WithString("table", mcp.Description("Table name (optional)")),
		mcp.WithBoolean("refresh", mcp.Description("Reload the schema before returning it")),
	), s.handleGetSchema)
}

func (s *Server) handleGetSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID := req.GetString("connectionId", "")
	if connID == "" {
		active, err := s.connections.Active(ctx)
		if err != nil {
			return toolError(err)
		}
		if active == nil {
			return mcp.NewToolResultError("no connectionId provided and no active connection"), nil
		}
		connID = active.ID
	}

	if req.GetBool("refresh", false) {
		if _, err := s.schema.Refresh(ctx, connID); err != nil {
			return toolError(err)
		}
	}
	if table := req.GetString("table", ""); table != "" {
		t, err := s.schema.GetTable(ctx, connID, table)
		if err != nil {
			return toolError(err)
		}
		return jsonResult(t)
	}
	snap, err := s.schema.GetSchema(ctx, connID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(snap)
}
