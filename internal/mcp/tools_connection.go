package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerConnectionTools() {
	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List all saved database connections. At most one is active."),
	), s.handleListConnections)

	s.mcp.AddTool(mcp.NewTool("activate_connection",
		mcp.WithDescription("Make a connection the active one. Any previously active connection is deactivated."),
		mcp.WithString("connectionId", mcp.Description("Connection ID"), mcp.Required()),
	), s.handleActivateConnection)

	s.mcp.AddTool(mcp.NewTool("test_connection",
		mcp.WithDescription("Test a saved connection"),
		mcp.WithString("connectionId", mcp.Description("Connection ID"), mcp.Required()),
	), s.handleTestConnection)
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conns, err := s.connections.List(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(conns)
}

func (s *Server) handleActivateConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID := req.GetString("connectionId", "")
	if connID == "" {
		return mcp.NewToolResultError("connectionId is required"), nil
	}
	conn, err := s.connections.Activate(ctx, connID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(conn)
}

func (s *Server) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID := req.GetString("connectionId", "")
	if connID == "" {
		return mcp.NewToolResultError("connectionId is required"), nil
	}
	res, err := s.connections.TestSaved(ctx, connID)
	if err != nil {
		// A failed test is an answer, not a protocol fault.
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}
