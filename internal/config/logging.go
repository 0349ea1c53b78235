package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// ServiceName tags every record written by the server logger.
const ServiceName = "dreams-mcp"

// NewLogger builds the server logger: human-readable text on stderr and,
// when LogFile is set, JSON lines appended to that file. The returned func
// closes the file. stdout is never written to; the stdio transport owns it.
func (c Config) NewLogger(stderr io.Writer) (*slog.Logger, func() error) {
	noop := func() error { return nil }

	if c.LogFile == "" {
		return newLogger(c.LogLevel, stderr, nil), noop
	}

	file, err := openLogFile(c.LogFile)
	if err != nil {
		logger := newLogger(c.LogLevel, stderr, nil)
		logger.Error("log file unavailable, logging to stderr only", "file", c.LogFile, "error", err)
		return logger, noop
	}

	return newLogger(c.LogLevel, stderr, file), file.Close
}

// NewLoggerWithWriters fans out to arbitrary writers. Used in tests.
func NewLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return newLogger(level, stderr, file)
}

func newLogger(level slog.Level, stderr, file io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{slog.NewTextHandler(stderr, opts)}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}
	return slog.New(slogmulti.Fanout(handlers...)).With("service", ServiceName)
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
