package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"datalink/internal/errs"
	"datalink/internal/logger"
	"datalink/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for DataLink.
// It exposes tools, resources, and prompts so AI agents can browse
// connections, run queries and read schemas.
type Server struct {
	mcp *server.MCPServer
	log *logger.Logger

	// Services (injected from app layer)
	connections *service.ConnectionService
	queries     *service.QueryService
	schema      *service.SchemaService
	export      *service.ExportService
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Connections *service.ConnectionService
	Queries     *service.QueryService
	Schema      *service.SchemaService
	Export      *service.ExportService
	Log         *logger.Logger
	Version     string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		log:         deps.Log.With().Str("component", "mcp").Logger(),
		connections: deps.Connections,
		queries:     deps.Queries,
		schema:      deps.Schema,
		export:      deps.Export,
	}

	s.mcp = server.NewMCPServer(
		"datalink-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerConnectionTools()
	s.registerQueryTools()
	s.registerSchemaTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio serves on stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.log.Info("starting stdio server")
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ── Helpers ────────────────────────────────────────────────

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

// toolError reports caller mistakes (unknown ids, empty SQL, nothing
// connected) as tool-level errors the agent can read. Anything else is a
// protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch errs.KindOf(err) {
	case errs.ErrKindUnknown, errs.ErrKindOperationFailed:
		return nil, err
	default:
		return mcp.NewToolResultError(err.Error()), nil
	}
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}
