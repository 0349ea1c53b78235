package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dreams-mcp/internal/registry"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to MCP clients",
	Long: `List every tool with its description and input fields.

Examples:
  dreams tools
  dreams tools --json`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print descriptors as JSON")
}

// toolEntry is the JSON shape of one descriptor, matching MCP tools/list.
type toolEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

func runTools(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	descriptors := registry.Tools()

	if toolsJSON {
		entries := make([]toolEntry, len(descriptors))
		for i, d := range descriptors {
			entries[i] = toolEntry{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	theme := themeFor(out)
	for i, d := range descriptors {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, theme.name(d.Name))
		fmt.Fprintf(out, "  %s\n", d.Description)

		props := make([]string, 0, len(d.InputSchema.Properties))
		for key := range d.InputSchema.Properties {
			props = append(props, key)
		}
		sort.Strings(props)

		for _, key := range props {
			prop := d.InputSchema.Properties[key]
			var notes []string
			if slices.Contains(d.InputSchema.Required, key) {
				notes = append(notes, "required")
			}
			if len(prop.Default) > 0 {
				notes = append(notes, "default "+string(prop.Default))
			}
			line := fmt.Sprintf("  - %s (%s)", key, prop.Type)
			if len(notes) > 0 {
				line += " " + theme.hint(strings.Join(notes, ", "))
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
