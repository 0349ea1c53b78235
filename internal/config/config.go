// Package config loads and validates runtime configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ArgMode selects how tool arguments reach the external core.
type ArgMode string

const (
	// ArgModeStdin sends arguments as one JSON object on the child's stdin.
	ArgModeStdin ArgMode = "stdin"

	// ArgModeInline interpolates arguments into the script body and runs it
	// through a shell. Kept for cores that cannot read stdin.
	ArgModeInline ArgMode = "inline"
)

// Transport selects how the MCP server is exposed.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

// Config holds all configuration values.
type Config struct {
	// External core
	CoreDir   string
	PythonCmd string
	ArgMode   ArgMode

	// Invocation limits
	Timeout       time.Duration
	MaxConcurrent int
	StrictArgs    bool

	// Vector store location inside the core
	MemoryDB    string
	MemoryTable string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Server transport
	Transport Transport
	HTTPAddr  string
}

// fileConfig mirrors Config for YAML decoding. Unset keys keep their defaults.
type fileConfig struct {
	CoreDir       *string `yaml:"core_dir"`
	PythonCmd     *string `yaml:"python_cmd"`
	ArgMode       *string `yaml:"arg_mode"`
	Timeout       *string `yaml:"timeout"`
	MaxConcurrent *int    `yaml:"max_concurrent"`
	StrictArgs    *bool   `yaml:"strict_args"`
	MemoryDB      *string `yaml:"memory_db"`
	MemoryTable   *string `yaml:"memory_table"`
	LogFile       *string `yaml:"log_file"`
	LogLevel      *string `yaml:"log_level"`
	Transport     *string `yaml:"transport"`
	HTTPAddr      *string `yaml:"http_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CoreDir:       defaultCoreDir(),
		PythonCmd:     "uv run python",
		ArgMode:       ArgModeStdin,
		Timeout:       2 * time.Minute,
		MaxConcurrent: 0,
		StrictArgs:    true,
		MemoryDB:      "./dreams_memory",
		MemoryTable:   "codebase",
		LogFile:       "/tmp/dreams-mcp.log",
		LogLevel:      slog.LevelInfo,
		Transport:     TransportStdio,
		HTTPAddr:      "127.0.0.1:8765",
	}
}

func defaultCoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cog-core"
	}
	return filepath.Join(home, "cog-core")
}

// Load builds the configuration from defaults, the optional YAML file named by
// path (or DREAMS_CONFIG when path is empty) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DREAMS_CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.CoreDir, fc.CoreDir)
	setString(&c.PythonCmd, fc.PythonCmd)
	setString(&c.MemoryDB, fc.MemoryDB)
	setString(&c.MemoryTable, fc.MemoryTable)
	setString(&c.LogFile, fc.LogFile)
	setString(&c.HTTPAddr, fc.HTTPAddr)
	if fc.ArgMode != nil {
		c.ArgMode = ArgMode(strings.ToLower(*fc.ArgMode))
	}
	if fc.Transport != nil {
		c.Transport = Transport(strings.ToLower(*fc.Transport))
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout %q: %w", *fc.Timeout, err)
		}
		c.Timeout = d
	}
	if fc.MaxConcurrent != nil {
		c.MaxConcurrent = *fc.MaxConcurrent
	}
	if fc.StrictArgs != nil {
		c.StrictArgs = *fc.StrictArgs
	}
	if fc.LogLevel != nil {
		c.LogLevel = parseLogLevel(*fc.LogLevel)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.CoreDir = getEnv("DREAMS_CORE_DIR", c.CoreDir)
	c.PythonCmd = getEnv("DREAMS_PYTHON_CMD", c.PythonCmd)
	c.ArgMode = ArgMode(strings.ToLower(getEnv("DREAMS_ARG_MODE", string(c.ArgMode))))
	c.MemoryDB = getEnv("DREAMS_MEMORY_DB", c.MemoryDB)
	c.MemoryTable = getEnv("DREAMS_MEMORY_TABLE", c.MemoryTable)
	c.LogFile = getEnv("DREAMS_LOG_FILE", c.LogFile)
	c.Transport = Transport(strings.ToLower(getEnv("DREAMS_TRANSPORT", string(c.Transport))))
	c.HTTPAddr = getEnv("DREAMS_HTTP_ADDR", c.HTTPAddr)

	if v := os.Getenv("DREAMS_LOG_LEVEL"); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv("DREAMS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse DREAMS_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("DREAMS_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DREAMS_MAX_CONCURRENT %q: %w", v, err)
		}
		c.MaxConcurrent = n
	}
	if v := os.Getenv("DREAMS_STRICT_ARGS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DREAMS_STRICT_ARGS %q: %w", v, err)
		}
		c.StrictArgs = b
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.CoreDir) == "":
		return fmt.Errorf("core_dir must not be empty")
	case len(c.Interpreter()) == 0:
		return fmt.Errorf("python_cmd must not be empty")
	case c.ArgMode != ArgModeStdin && c.ArgMode != ArgModeInline:
		return fmt.Errorf("arg_mode must be %q or %q, got %q", ArgModeStdin, ArgModeInline, c.ArgMode)
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	case c.MaxConcurrent < 0:
		return fmt.Errorf("max_concurrent must not be negative, got %d", c.MaxConcurrent)
	case c.MemoryDB == "":
		return fmt.Errorf("memory_db must not be empty")
	case c.MemoryTable == "":
		return fmt.Errorf("memory_table must not be empty")
	case c.Transport != TransportStdio && c.Transport != TransportHTTP:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport)
	case c.Transport == TransportHTTP && c.HTTPAddr == "":
		return fmt.Errorf("http_addr is required for the http transport")
	}
	return nil
}

// Interpreter splits PythonCmd into argv form.
func (c Config) Interpreter() []string {
	return strings.Fields(c.PythonCmd)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
