package mcpserver

import (
	"context"
	"strings"

	"datalink/internal/domain"
	"datalink/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("execute_query",
		mcp.WithDescription("Run a SQL statement on the active connection and record it in the history"),
		mcp.WithString("sql", mcp.Description("SQL statement to execute"), mcp.Required()),
		mcp.WithString("connectionId", mcp.Description("Connection ID (optional, must be the active connection)")),
	), s.handleExecuteQuery)

	s.mcp.AddTool(mcp.NewTool("format_sql",
		mcp.WithDescription("Put FROM, WHERE, GROUP BY, HAVING and ORDER BY on their own lines"),
		mcp.WithString("sql", mcp.Description("SQL text"), mcp.Required()),
	), s.handleFormatSQL)

	s.mcp.AddTool(mcp.NewTool("list_queries",
		mcp.WithDescription("List executed and saved queries, newest first"),
		mcp.WithString("connectionId", mcp.Description("Only queries for this connection (optional)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of queries (default 20)")),
	), s.handleListQueries)

	s.mcp.AddTool(mcp.NewTool("export_query",
		mcp.WithDescription("Render the stored result rows of a history entry as CSV or JSON, capped at the maxRows setting"),
		mcp.WithString("queryId", mcp.Description("Query ID from list_queries or execute_query"), mcp.Required()),
		mcp.WithString("format", mcp.Description("csv or json (optional, defaults to the exportFormat setting)")),
		mcp.WithString("columns", mcp.Description("Comma-separated columns to keep (optional)")),
	), s.handleExportQuery)
}

func (s *Server) handleExecuteQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.queries.Execute(ctx, service.ExecuteInput{
		ConnectionID: req.GetString("connectionId", ""),
		SQL:          req.GetString("sql", ""),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(rec)
}

func (s *Server) handleFormatSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(service.FormatSQL(req.GetString("sql", ""))), nil
}

func (s *Server) handleListQueries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	list, err := s.queries.List(ctx, domain.QueryFilter{
		ConnectionID: req.GetString("connectionId", ""),
		Limit:        int(getFloat(args, "limit", 20)),
	})
	if err != nil {
		return toolError(err)
	}
	// History listings omit result rows.
	for i := range list {
		list[i].Rows = nil
	}
	return jsonResult(list)
}

func (s *Server) handleExportQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := service.ExportInput{
		QueryID: req.GetString("queryId", ""),
		Format:  req.GetString("format", ""),
	}
	if cols := req.GetString("columns", ""); cols != "" {
		in.Columns = strings.Split(cols, ",")
	}
	var b strings.Builder
	if _, err := s.export.Export(ctx, in, &b); err != nil {
		return toolError(err)
	}
	return textResult(b.String()), nil
}
