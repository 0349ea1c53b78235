// Package dispatch routes tool invocations to their script and runs them.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/metrics"
	"github.com/raphaelgruber/dreams-mcp/internal/result"
	"github.com/raphaelgruber/dreams-mcp/internal/runner"
	"github.com/raphaelgruber/dreams-mcp/internal/script"
)

// Renderer turns validated arguments into a script.
type Renderer interface {
	Render(tool string, a script.Args) (script.Script, error)
}

// Executor runs a rendered script.
type Executor interface {
	Run(ctx context.Context, s script.Script) result.Result
}

// Invocation is one request to run a named tool.
type Invocation struct {
	Tool string
	Args map[string]any
}

// Dispatcher validates invocations and hands them to the executor.
// It holds no per-invocation state and is safe for concurrent use.
type Dispatcher struct {
	renderer Renderer
	executor Executor
	strict   bool
	sem      *semaphore.Weighted
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// Dependencies holds the collaborators of a Dispatcher.
type Dependencies struct {
	Renderer Renderer
	Executor Executor
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// New creates a dispatcher. Nil Metrics and Logger are allowed.
func New(cfg config.Config, deps Dependencies) *Dispatcher {
	d := &Dispatcher{
		renderer: deps.Renderer,
		executor: deps.Executor,
		strict:   cfg.StrictArgs,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if cfg.MaxConcurrent > 0 {
		d.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return d
}

// NewFromConfig wires the templater and process runner for cfg.
func NewFromConfig(cfg config.Config, collector *metrics.Collector, logger *slog.Logger) *Dispatcher {
	return New(cfg, Dependencies{
		Renderer: script.NewTemplater(cfg),
		Executor: runner.New(cfg, logger),
		Metrics:  collector,
		Logger:   logger,
	})
}

// Prepare validates inv and renders its script without running it.
// Errors are *result.Failure values.
func (d *Dispatcher) Prepare(inv Invocation) (script.Script, error) {
	args, failure := extractArgs(inv.Tool, inv.Args, d.strict)
	if failure != nil {
		return script.Script{}, failure
	}

	s, err := d.renderer.Render(inv.Tool, args)
	if err != nil {
		return script.Script{}, &result.Failure{Kind: result.KindSpawn, Message: err.Error()}
	}
	return s, nil
}

// Invoke runs one invocation to completion. Unknown tools yield a
// KindUnknownTool failure; the protocol layer decides how to surface it.
func (d *Dispatcher) Invoke(ctx context.Context, inv Invocation) result.Result {
	id := uuid.New().String()[:8]
	start := time.Now()

	res := d.invoke(ctx, inv)

	duration := time.Since(start)
	kind := res.Kind()

	// Unknown names are caller-controlled; keep them out of the collector.
	if d.metrics != nil && kind != result.KindUnknownTool {
		d.metrics.RecordInvocation(inv.Tool, duration, string(kind))
	}

	attrs := []any{
		"id", id,
		"tool", inv.Tool,
		"duration_ms", duration.Milliseconds(),
	}
	if res.OK() {
		d.logger.Info("invocation completed", append(attrs, "output_bytes", len(res.Text))...)
	} else {
		d.logger.Warn("invocation failed", append(attrs, "kind", kind, "error", res.Failure.Message)...)
	}
	return res
}

func (d *Dispatcher) invoke(ctx context.Context, inv Invocation) result.Result {
	s, err := d.Prepare(inv)
	if err != nil {
		var f *result.Failure
		if errors.As(err, &f) {
			return result.Result{Failure: f}
		}
		return result.Fail(result.KindSpawn, "%s", err.Error())
	}

	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return result.Fail(result.KindTimeout, "no free process slot before deadline")
			}
			return result.Fail(result.KindCanceled, "invocation canceled while waiting for a process slot")
		}
		defer d.sem.Release(1)
	}

	return d.executor.Run(ctx, s)
}
