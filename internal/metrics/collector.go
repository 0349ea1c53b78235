// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// ToolMetrics holds aggregated metrics for a single tool.
type ToolMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Failures by kind; successful invocations are not listed
	Failures map[string]int64
}

// ToolSnapshot provides computed stats from raw metrics.
type ToolSnapshot struct {
	Tool        string
	Count       int64
	Failed      int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
	Failures    map[string]int64
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Tools         []ToolSnapshot
}

// Collector aggregates in-memory invocation statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	tools     map[string]*ToolMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		tools:     make(map[string]*ToolMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for a tool.
// Caller must hold write lock.
func (c *Collector) getOrCreate(tool string) *ToolMetrics {
	m, ok := c.tools[tool]
	if !ok {
		m = &ToolMetrics{
			MinTime:  time.Duration(math.MaxInt64),
			Failures: make(map[string]int64),
		}
		c.tools[tool] = m
	}
	return m
}

// RecordInvocation records one finished invocation. failureKind is empty on
// success.
func (c *Collector) RecordInvocation(tool string, duration time.Duration, failureKind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(tool)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	if failureKind != "" {
		m.Failures[failureKind]++
	}
}

func snapshotTool(tool string, m *ToolMetrics) ToolSnapshot {
	snap := ToolSnapshot{
		Tool:        tool,
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
		Failures:    make(map[string]int64, len(m.Failures)),
	}
	for kind, n := range m.Failures {
		snap.Failures[kind] = n
		snap.Failed += n
	}
	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics, sorted by tool.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Tools:         make([]ToolSnapshot, 0, len(c.tools)),
	}
	for tool, m := range c.tools {
		if m.Count == 0 {
			continue
		}
		snap.Tools = append(snap.Tools, snapshotTool(tool, m))
	}
	sort.Slice(snap.Tools, func(i, j int) bool {
		return snap.Tools[i].Tool < snap.Tools[j].Tool
	})
	return snap
}

// LogAttrs flattens the snapshot into slog key/value pairs.
func (s Snapshot) LogAttrs() []any {
	attrs := []any{"uptime_s", int64(s.UptimeSeconds)}
	for _, t := range s.Tools {
		attrs = append(attrs,
			t.Tool+"_count", t.Count,
			t.Tool+"_failed", t.Failed,
			t.Tool+"_avg_ms", t.AvgTimeMs,
		)
	}
	return attrs
}
