package tools

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/dreams-mcp/internal/result"
)

// executionErrorPrefix starts the text of every failed invocation envelope.
const executionErrorPrefix = "Execution Error: "

// ErrorResult creates a tool error result with optional recovery hint.
// If hint is non-empty, formats as "{msg}. {hint}".
// Returns IsError=true so LLM can see the error and self-correct.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// TextResult creates a success result with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ToolResult translates a dispatcher result into an MCP envelope.
// Unknown tools are not tool-level failures: they come back as a Go error so
// the SDK reports a protocol error to the client.
func ToolResult(res result.Result) (*mcp.CallToolResult, error) {
	if res.OK() {
		return TextResult(res.Text), nil
	}

	f := res.Failure
	switch f.Kind {
	case result.KindUnknownTool:
		return nil, fmt.Errorf("%s", f.Message)
	case result.KindInvalidArguments:
		return ErrorResult("Invalid arguments: "+f.Message, "Check the tool input schema"), nil
	case result.KindSpawn:
		return ErrorResult(executionErrorPrefix+f.Message, "Check DREAMS_CORE_DIR and DREAMS_PYTHON_CMD"), nil
	default:
		return ErrorResult(executionErrorPrefix+f.Message, ""), nil
	}
}
