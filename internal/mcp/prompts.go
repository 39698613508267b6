package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("explore_database",
		mcp.WithPromptDescription("Walk through the schema of a connection and sample its main tables"),
		mcp.WithArgument("connectionName",
			mcp.ArgumentDescription("Name of the connection to explore"),
			mcp.RequiredArgument(),
		),
	), s.handleExplorePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("write_query",
		mcp.WithPromptDescription("Draft, format and run a SQL query that answers a question"),
		mcp.WithArgument("question",
			mcp.ArgumentDescription("What the query should answer"),
			mcp.RequiredArgument(),
		),
	), s.handleWriteQueryPrompt)
}

func (s *Server) handleExplorePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["connectionName"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Explore the %s database", name),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Explore the database behind the connection "%s". Follow these steps:

1. Use list_connections to find its id, then activate_connection if it is not active
2. Use get_schema to list its tables, views and procedures
3. For the two largest tables, call get_schema with the table name to see the columns
4. Run a small SELECT on each with execute_query and summarise what the data looks like`, name),
				},
			},
		},
	}, nil
}

func (s *Server) handleWriteQueryPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	question := req.Params.Arguments["question"]
	return &mcp.GetPromptResult{
		Description: "Write a SQL query",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Write a SQL query that answers: %s

1. Check the active connection's schema with get_schema
2. Draft the query and tidy it with format_sql
3. Run it with execute_query and explain the result
4. Use list_queries to show where it landed in the history`, question),
				},
			},
		},
	}, nil
}
