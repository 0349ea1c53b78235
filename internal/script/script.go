// Package script renders the Python programs executed by the external core.
package script

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"text/template"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/registry"
)

//go:embed templates/*.py.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.py.tmpl"))

// Args are the validated tool arguments. Only the fields of the selected tool
// are read.
type Args struct {
	Query    string
	Limit    int
	FilePath string
	Text     string
}

// Script is one rendered program, ready for the runner.
type Script struct {
	Tool string
	Body string

	// Payload is the JSON object fed on stdin. It is nil in inline mode.
	Payload []byte
}

// Templater renders scripts for one argument mode.
type Templater struct {
	mode        config.ArgMode
	memoryDB    string
	memoryTable string
}

// NewTemplater creates a templater from the core configuration.
func NewTemplater(cfg config.Config) *Templater {
	return &Templater{
		mode:        cfg.ArgMode,
		memoryDB:    cfg.MemoryDB,
		memoryTable: cfg.MemoryTable,
	}
}

type field struct {
	Key     string
	Literal string
}

type templateData struct {
	Inline bool
	Fields []field
}

// Render builds the script for tool. It has no side effects.
func (t *Templater) Render(tool string, a Args) (Script, error) {
	var values map[string]any
	switch tool {
	case registry.SearchMemory:
		values = map[string]any{
			"query": a.Query,
			"limit": a.Limit,
			"db":    t.memoryDB,
			"table": t.memoryTable,
		}
	case registry.GetFileStructure:
		values = map[string]any{"file_path": a.FilePath}
	case registry.GenerateEmbedding:
		values = map[string]any{"text": a.Text}
	default:
		return Script{}, fmt.Errorf("no template for tool %q", tool)
	}

	data := templateData{Inline: t.mode == config.ArgModeInline}
	if data.Inline {
		data.Fields = literalFields(values)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tool+".py.tmpl", data); err != nil {
		return Script{}, fmt.Errorf("render %s: %w", tool, err)
	}

	s := Script{Tool: tool, Body: buf.String()}
	if !data.Inline {
		payload, err := json.Marshal(values)
		if err != nil {
			return Script{}, fmt.Errorf("encode %s payload: %w", tool, err)
		}
		s.Payload = payload
	}
	return s, nil
}

// literalFields converts values to Python literals in key order.
func literalFields(values map[string]any) []field {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]field, 0, len(keys))
	for _, k := range keys {
		var lit string
		switch v := values[k].(type) {
		case int:
			lit = strconv.Itoa(v)
		case string:
			lit = "'" + EscapeLiteral(v) + "'"
		}
		fields = append(fields, field{Key: k, Literal: lit})
	}
	return fields
}
