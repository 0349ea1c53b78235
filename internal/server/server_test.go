package server_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/dispatch"
	"github.com/raphaelgruber/dreams-mcp/internal/server"
	"github.com/raphaelgruber/dreams-mcp/internal/tools"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestServerCreation(t *testing.T) {
	srv := server.New("test-version", testLogger())
	require.NotNil(t, srv, "server should not be nil")
	require.NotNil(t, srv.MCPServer(), "underlying MCP server should not be nil")
}

func TestServerSetup(t *testing.T) {
	srv := server.New("test-version", testLogger())
	require.NotNil(t, srv)

	// Setup should not panic
	srv.Setup()
}

// start runs srv over in-memory transports and returns a connected session.
func start(t *testing.T, srv *server.Server) (context.Context, *mcp.ClientSession) {
	t.Helper()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.MCPServer().Run(ctx, serverTransport)
	}()

	// Give server time to start
	time.Sleep(50 * time.Millisecond)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case err := <-serverErr:
			if err != nil {
				t.Logf("server stopped with: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("server did not stop within timeout")
		}
	})
	return ctx, session
}

func TestServerWithInMemoryTransport(t *testing.T) {
	srv := server.New("0.1.0-test", testLogger())
	srv.Setup()

	ctx, session := start(t, srv)

	initResult := session.InitializeResult()
	require.NotNil(t, initResult, "initialize result should not be nil")
	assert.Equal(t, server.Name, initResult.ServerInfo.Name)
	assert.Equal(t, "0.1.0-test", initResult.ServerInfo.Version)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err, "ListTools should succeed")
	assert.Empty(t, toolsResult.Tools, "should have no tools registered")
}

func TestServerRespondsToMultipleRequests(t *testing.T) {
	srv := server.New("0.1.0-test", testLogger())
	srv.Setup()

	cfg := config.Default()
	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		Dispatcher: dispatch.NewFromConfig(cfg, nil, testLogger()),
	})

	ctx, session := start(t, srv)

	for i := 0; i < 3; i++ {
		res, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "request %d should succeed", i)
		assert.Len(t, res.Tools, 3)
	}
}

// syncBuffer guards a buffer shared between server goroutines and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLoggingMiddlewareRecordsToolCalls(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := server.New("0.1.0-test", logger)
	srv.Setup()

	cfg := config.Default()
	cfg.CoreDir = t.TempDir()
	cfg.PythonCmd = filepath.Join(t.TempDir(), "missing-python")
	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		Dispatcher: dispatch.NewFromConfig(cfg, nil, logger),
	})

	ctx, session := start(t, srv)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "generate_embedding",
		Arguments: map[string]any{"text": "hello"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	out := logs.String()
	assert.Contains(t, out, "tool returned error")
	assert.Contains(t, out, "tool=generate_embedding")
}
