// Package registry holds the static catalog of tools offered to MCP clients.
package registry

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool names.
const (
	SearchMemory      = "search_memory"
	GetFileStructure  = "get_file_structure"
	GenerateEmbedding = "generate_embedding"
)

// DefaultSearchLimit is used when search_memory is called without a limit.
const DefaultSearchLimit = 5

// Descriptor describes one tool.
type Descriptor struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Tools returns the catalog in a fixed order. Every call builds fresh values.
func Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        SearchMemory,
			Description: "Semantic search of the codebase. Finds code by meaning (e.g. 'function that handles privacy').",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "What the code does, in natural language"},
					"limit": {Type: "integer", Description: "Maximum number of results", Default: mustRaw(DefaultSearchLimit)},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        GetFileStructure,
			Description: "Analyze code structure (classes/functions) using your local Python graph builder.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file_path": {Type: "string", Description: "Path of the source file, relative to the core directory or absolute"},
				},
				Required: []string{"file_path"},
			},
		},
		{
			Name:        GenerateEmbedding,
			Description: "Generate Nomic embeddings using local M2 Max GPU.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"text": {Type: "string", Description: "Text to embed"},
				},
				Required: []string{"text"},
			},
		},
	}
}

// Lookup returns the descriptor for name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range Tools() {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Names returns the tool names in catalog order.
func Names() []string {
	tools := Tools()
	names := make([]string, len(tools))
	for i, d := range tools {
		names[i] = d.Name
	}
	return names
}

func mustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
