// Package mcp bridges the tool registry onto an MCP server for the stdio
// transport. The stdio process binds exactly one session for its lifetime;
// the MCP library owns the initialize handshake and the exchange loop.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/pgtools/internal/tools"
)

// NewServer creates an MCPServer with every registry tool bound to runner,
// the owning session's executor handle.
func NewServer(reg *tools.Registry, runner tools.Runner, version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"pgtools",
		version,
		server.WithToolCapabilities(false),
	)

	for _, d := range reg.List() {
		registerTool(srv, reg, runner, d)
	}

	return srv
}

func registerTool(srv *server.MCPServer, reg *tools.Registry, runner tools.Runner, d tools.Descriptor) {
	schemaJSON, _ := json.Marshal(d.InputSchema)
	tool := mcp.NewToolWithRawSchema(d.Name, d.Description, schemaJSON)

	toolName := d.Name
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records, err := reg.Dispatch(ctx, runner, toolName, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", toolName, err)), nil
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: encoding result: %v", toolName, err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}
