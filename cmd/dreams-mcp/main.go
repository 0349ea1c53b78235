// Package main provides the entry point for the dreams-mcp server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/dispatch"
	"github.com/raphaelgruber/dreams-mcp/internal/metrics"
	"github.com/raphaelgruber/dreams-mcp/internal/registry"
	"github.com/raphaelgruber/dreams-mcp/internal/server"
	"github.com/raphaelgruber/dreams-mcp/internal/tools"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

// run serves until shutdown and returns the process exit code. Deferred
// cleanup (log file, signal context) runs before main exits.
func run() int {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := cfg.NewLogger(os.Stderr)
	defer cleanup()

	logger.Info("dreams-mcp starting",
		"version", version,
		"core_dir", cfg.CoreDir,
		"python_cmd", cfg.PythonCmd,
		"arg_mode", cfg.ArgMode,
		"transport", cfg.Transport,
	)

	if info, err := os.Stat(cfg.CoreDir); err != nil || !info.IsDir() {
		// Not fatal: every call will fail with a spawn error until it exists.
		logger.Warn("core directory not found", "core_dir", cfg.CoreDir)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	collector := metrics.NewCollector()

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	// Register tools
	deps := &tools.Dependencies{
		Dispatcher: dispatch.NewFromConfig(cfg, collector, logger),
		Logger:     logger,
	}
	tools.RegisterAll(srv.MCPServer(), deps)
	logger.Info("tools registered", "count", len(registry.Names()))

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if cfg.Transport == config.TransportHTTP {
		err = srv.RunHTTP(ctx, cfg.HTTPAddr)
	} else {
		err = srv.Run(ctx)
	}

	logger.Info("invocation stats", collector.Snapshot().LogAttrs()...)

	if err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		return 1
	}

	logger.Info("shutdown complete")
	return 0
}
