// Package runner executes rendered scripts inside the external core.
package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/result"
	"github.com/raphaelgruber/dreams-mcp/internal/script"
)

// defaultWaitDelay bounds how long Run waits for the child's pipes after the
// child is killed. Grandchildren started by `uv run` may keep them open.
const defaultWaitDelay = 2 * time.Second

// errRunnerTimeout marks a deadline set by the runner itself, as opposed to
// one inherited from the caller.
var errRunnerTimeout = errors.New("runner timeout")

// shell runs inline-mode commands.
const shell = "/bin/sh"

// Runner spawns one interpreter process per script.
type Runner struct {
	coreDir     string
	pythonCmd   string
	interpreter []string
	mode        config.ArgMode
	timeout     time.Duration
	waitDelay   time.Duration
	logger      *slog.Logger
}

// New creates a runner for the configured core. cfg should already be
// validated.
func New(cfg config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		coreDir:     cfg.CoreDir,
		pythonCmd:   cfg.PythonCmd,
		interpreter: cfg.Interpreter(),
		mode:        cfg.ArgMode,
		timeout:     cfg.Timeout,
		waitDelay:   defaultWaitDelay,
		logger:      logger,
	}
}

// Command builds the process for s without starting it.
func (r *Runner) Command(ctx context.Context, s script.Script) *exec.Cmd {
	var cmd *exec.Cmd
	if r.mode == config.ArgModeInline {
		cmd = exec.CommandContext(ctx, shell, "-c", r.ShellCommand(s.Body))
	} else {
		args := append(append([]string{}, r.interpreter[1:]...), "-c", s.Body)
		cmd = exec.CommandContext(ctx, r.interpreter[0], args...)
		cmd.Dir = r.coreDir
		cmd.Stdin = bytes.NewReader(s.Payload)
	}
	killProcessGroup(cmd)
	cmd.WaitDelay = r.waitDelay
	return cmd
}

// ShellCommand renders the inline-mode command line:
// cd into the core, then run the interpreter with the script as a
// double-quoted argument.
func (r *Runner) ShellCommand(body string) string {
	return "cd " + QuoteSingle(r.coreDir) + " && " + r.pythonCmd + ` -c "` + EscapeDoubleQuoted(body) + `"`
}

// Run executes s and converts the outcome into a result. Stdout is trimmed
// and returned verbatim; it is not checked for valid JSON.
func (r *Runner) Run(ctx context.Context, s script.Script) result.Result {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, r.timeout, errRunnerTimeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := r.Command(ctx, s)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		res := r.classify(ctx, err, stderr.String())
		r.logger.Debug("core process failed",
			"tool", s.Tool,
			"kind", res.Kind(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return res
	}

	r.logger.Debug("core process finished",
		"tool", s.Tool,
		"duration_ms", duration.Milliseconds(),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	return result.Success(strings.TrimSpace(stdout.String()))
}

func (r *Runner) classify(ctx context.Context, err error, stderr string) result.Result {
	switch ctxErr := ctx.Err(); {
	case errors.Is(context.Cause(ctx), errRunnerTimeout):
		return result.Fail(result.KindTimeout, "core process did not finish within %s", r.timeout)
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return result.Fail(result.KindTimeout, "invocation deadline exceeded before the core process finished")
	case errors.Is(ctxErr, context.Canceled):
		return result.Fail(result.KindCanceled, "invocation canceled")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return result.Fail(result.KindExit, "%s", msg)
	}

	// Start failed: interpreter not found or core directory missing.
	return result.Fail(result.KindSpawn, "%s", err.Error())
}
