package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/dreams-mcp/internal/dispatch"
	"github.com/raphaelgruber/dreams-mcp/internal/registry"
)

// RegisterAll registers every catalog tool with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	handler := NewInvokeHandler(deps)
	for _, d := range registry.Tools() {
		server.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		}, handler)
	}
}

// NewInvokeHandler creates the handler shared by all tools. Arguments are
// kept untyped; the dispatcher validates them per tool.
func NewInvokeHandler(deps *Dependencies) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArguments(req.Params.Arguments)
		if err != nil {
			if deps.Logger != nil {
				deps.Logger.Warn("rejecting malformed arguments", "tool", req.Params.Name, "error", err)
			}
			return ErrorResult("Invalid arguments: "+err.Error(), "Pass a JSON object"), nil
		}

		res := deps.Dispatcher.Invoke(ctx, dispatch.Invocation{
			Tool: req.Params.Name,
			Args: args,
		})
		return ToolResult(res)
	}
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return args, nil
}
