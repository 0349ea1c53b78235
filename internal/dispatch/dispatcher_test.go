package dispatch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/metrics"
	"github.com/raphaelgruber/dreams-mcp/internal/registry"
	"github.com/raphaelgruber/dreams-mcp/internal/result"
	"github.com/raphaelgruber/dreams-mcp/internal/script"
)

// recordingExecutor captures scripts instead of spawning processes.
type recordingExecutor struct {
	mu      sync.Mutex
	scripts []script.Script
	result  result.Result
}

func (e *recordingExecutor) Run(_ context.Context, s script.Script) result.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts = append(e.scripts, s)
	if e.result.OK() && e.result.Text == "" {
		return result.Success(`{"ok": true}`)
	}
	return e.result
}

// blockingExecutor holds every invocation until release is closed.
type blockingExecutor struct {
	release  chan struct{}
	started  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (e *blockingExecutor) Run(ctx context.Context, _ script.Script) result.Result {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	e.started <- struct{}{}
	select {
	case <-e.release:
		return result.Success("done")
	case <-ctx.Done():
		return result.Fail(result.KindCanceled, "canceled")
	}
}

func newDispatcher(cfg config.Config, exec Executor, collector *metrics.Collector) *Dispatcher {
	return New(cfg, Dependencies{
		Renderer: script.NewTemplater(cfg),
		Executor: exec,
		Metrics:  collector,
	})
}

func payload(t *testing.T, s script.Script) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(s.Payload, &m))
	return m
}

func TestInvokeRoutesEachTool(t *testing.T) {
	markers := map[string]string{
		registry.SearchMemory:      "tbl.search(q_vec)",
		registry.GetFileStructure:  "SymbolGraphBuilder()",
		registry.GenerateEmbedding: "embedding_list",
	}
	args := map[string]any{"query": "q", "file_path": "a.py", "text": "t"}

	for _, tool := range registry.Names() {
		t.Run(tool, func(t *testing.T) {
			exec := &recordingExecutor{}
			d := newDispatcher(config.Default(), exec, nil)

			res := d.Invoke(context.Background(), Invocation{Tool: tool, Args: args})
			require.True(t, res.OK(), "unexpected failure: %v", res.Err())

			require.Len(t, exec.scripts, 1)
			assert.Equal(t, tool, exec.scripts[0].Tool)
			assert.Contains(t, exec.scripts[0].Body, markers[tool])
		})
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	exec := &recordingExecutor{}
	collector := metrics.NewCollector()
	d := newDispatcher(config.Default(), exec, collector)

	res := d.Invoke(context.Background(), Invocation{Tool: "drop_tables", Args: map[string]any{}})

	require.False(t, res.OK())
	assert.Equal(t, result.KindUnknownTool, res.Kind())
	assert.Contains(t, res.Failure.Message, "drop_tables")
	assert.Empty(t, res.Text)
	assert.Empty(t, exec.scripts, "nothing may be spawned")
	assert.Empty(t, collector.Snapshot().Tools)
}

func TestInvokeMissingArguments(t *testing.T) {
	tests := []struct {
		tool string
		key  string
	}{
		{registry.SearchMemory, "query"},
		{registry.GetFileStructure, "file_path"},
		{registry.GenerateEmbedding, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.tool+"/strict", func(t *testing.T) {
			exec := &recordingExecutor{}
			d := newDispatcher(config.Default(), exec, nil)

			res := d.Invoke(context.Background(), Invocation{Tool: tt.tool})
			require.False(t, res.OK())
			assert.Equal(t, result.KindInvalidArguments, res.Kind())
			assert.Equal(t, "missing required argument: "+tt.key, res.Failure.Message)
			assert.Empty(t, exec.scripts)
		})

		t.Run(tt.tool+"/lenient", func(t *testing.T) {
			cfg := config.Default()
			cfg.StrictArgs = false
			exec := &recordingExecutor{}
			d := newDispatcher(cfg, exec, nil)

			res := d.Invoke(context.Background(), Invocation{Tool: tt.tool})
			require.True(t, res.OK())
			require.Len(t, exec.scripts, 1)
			assert.Equal(t, "undefined", payload(t, exec.scripts[0])[tt.key])
		})
	}
}

func TestInvokeNullArgumentStrict(t *testing.T) {
	d := newDispatcher(config.Default(), &recordingExecutor{}, nil)
	res := d.Invoke(context.Background(), Invocation{Tool: registry.GenerateEmbedding, Args: map[string]any{"text": nil}})
	assert.Equal(t, result.KindInvalidArguments, res.Kind())
}

func TestSearchLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   any
		omit    bool
		strict  bool
		want    float64
		invalid bool
	}{
		{name: "absent", omit: true, strict: true, want: 5},
		{name: "null", limit: nil, strict: true, want: 5},
		{name: "zero", limit: float64(0), strict: true, want: 5},
		{name: "false", limit: false, strict: true, want: 5},
		{name: "empty string", limit: "", strict: true, want: 5},
		{name: "number", limit: float64(12), strict: true, want: 12},
		{name: "numeric string", limit: " 3 ", strict: true, want: 3},
		{name: "json number", limit: json.Number("7"), strict: true, want: 7},
		{name: "fraction strict", limit: 2.5, strict: true, invalid: true},
		{name: "negative strict", limit: float64(-1), strict: true, invalid: true},
		{name: "word strict", limit: "many", strict: true, invalid: true},
		{name: "true strict", limit: true, strict: true, invalid: true},
		{name: "word lenient", limit: "many", strict: false, want: 5},
		{name: "negative lenient", limit: float64(-4), strict: false, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.StrictArgs = tt.strict
			exec := &recordingExecutor{}
			d := newDispatcher(cfg, exec, nil)

			args := map[string]any{"query": "auth"}
			if !tt.omit {
				args["limit"] = tt.limit
			}
			res := d.Invoke(context.Background(), Invocation{Tool: registry.SearchMemory, Args: args})

			if tt.invalid {
				assert.Equal(t, result.KindInvalidArguments, res.Kind())
				assert.Empty(t, exec.scripts)
				return
			}
			require.True(t, res.OK(), "unexpected failure: %v", res.Err())
			require.Len(t, exec.scripts, 1)
			assert.Equal(t, tt.want, payload(t, exec.scripts[0])["limit"])
		})
	}
}

func TestSearchLimitInlineDefault(t *testing.T) {
	cfg := config.Default()
	cfg.ArgMode = config.ArgModeInline
	d := newDispatcher(cfg, &recordingExecutor{}, nil)

	s, err := d.Prepare(Invocation{Tool: registry.SearchMemory, Args: map[string]any{"query": "auth"}})
	require.NoError(t, err)
	assert.Contains(t, s.Body, "'limit': 5,")
}

func TestCoerceString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"text", "text"},
		{float64(42), "42"},
		{1.5, "1.5"},
		{true, "true"},
		{nil, "null"},
		{[]any{"a", float64(1)}, `["a",1]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, coerceString(tt.in))
	}
}

func TestInvokeCoercesNonStringArguments(t *testing.T) {
	exec := &recordingExecutor{}
	d := newDispatcher(config.Default(), exec, nil)

	res := d.Invoke(context.Background(), Invocation{Tool: registry.GenerateEmbedding, Args: map[string]any{"text": float64(404)}})
	require.True(t, res.OK())
	assert.Equal(t, "404", payload(t, exec.scripts[0])["text"])
}

func TestInvokeRelaysExecutorFailure(t *testing.T) {
	exec := &recordingExecutor{result: result.Fail(result.KindExit, "boom")}
	collector := metrics.NewCollector()
	d := newDispatcher(config.Default(), exec, collector)

	res := d.Invoke(context.Background(), Invocation{Tool: registry.GenerateEmbedding, Args: map[string]any{"text": "x"}})
	assert.Equal(t, result.KindExit, res.Kind())
	assert.Equal(t, "boom", res.Failure.Message)

	snap := collector.Snapshot()
	require.Len(t, snap.Tools, 1)
	assert.Equal(t, int64(1), snap.Tools[0].Failures["exit"])
}

func TestMaxConcurrent(t *testing.T) {
	cfg := config.Default()
	cfg.MaxConcurrent = 2
	exec := &blockingExecutor{release: make(chan struct{}), started: make(chan struct{}, 10)}
	d := newDispatcher(cfg, exec, nil)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			res := d.Invoke(ctx, Invocation{Tool: registry.GenerateEmbedding, Args: map[string]any{"text": "x"}})
			return res.Err()
		})
	}

	// Two slots fill, the rest wait.
	<-exec.started
	<-exec.started
	select {
	case <-exec.started:
		t.Fatal("third invocation started while two were in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(exec.release)
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(2), exec.peak.Load())
}

func TestMaxConcurrentWaitHonoursDeadline(t *testing.T) {
	cfg := config.Default()
	cfg.MaxConcurrent = 1
	exec := &blockingExecutor{release: make(chan struct{}), started: make(chan struct{}, 10)}
	d := newDispatcher(cfg, exec, nil)
	defer close(exec.release)

	go d.Invoke(context.Background(), Invocation{Tool: registry.GenerateEmbedding, Args: map[string]any{"text": "x"}})
	<-exec.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := d.Invoke(ctx, Invocation{Tool: registry.GenerateEmbedding, Args: map[string]any{"text": "y"}})
	assert.Equal(t, result.KindTimeout, res.Kind())
}

func TestInvokeIdempotent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter needs /bin/sh")
	}

	// Stand-in core: a fixed store answering every search the same way.
	fake := filepath.Join(t.TempDir(), "fake-python")
	body := "#!/bin/sh\ncat >/dev/null\nprintf '[{\"file\": \"auth.py\", \"symbol\": \"login\", \"code_snippet\": \"def login(): ...\", \"score\": 0.91}]\\n'\n"
	require.NoError(t, os.WriteFile(fake, []byte(body), 0o755))

	cfg := config.Default()
	cfg.CoreDir = t.TempDir()
	cfg.PythonCmd = fake
	d := NewFromConfig(cfg, metrics.NewCollector(), nil)

	inv := Invocation{Tool: registry.SearchMemory, Args: map[string]any{"query": "login handler", "limit": float64(1)}}

	var texts [4]string
	var g errgroup.Group
	for i := range texts {
		g.Go(func() error {
			res := d.Invoke(context.Background(), inv)
			texts[i] = res.Text
			return res.Err()
		})
	}
	require.NoError(t, g.Wait())

	for i := 1; i < len(texts); i++ {
		assert.Equal(t, texts[0], texts[i])
	}
	assert.JSONEq(t, `[{"file": "auth.py", "symbol": "login", "code_snippet": "def login(): ...", "score": 0.91}]`, texts[0])
}
