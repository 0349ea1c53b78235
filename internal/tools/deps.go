// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/raphaelgruber/dreams-mcp/internal/dispatch"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger
}
