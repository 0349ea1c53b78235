package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dreams-mcp/internal/dispatch"
)

var callArgsJSON string

var callCmd = &cobra.Command{
	Use:   "call <tool> [key=value ...]",
	Short: "Invoke one tool and print its output",
	Long: `Invoke a tool exactly as an MCP client would and print the core's output.

Values that parse as JSON keep their type; everything else is a string.
Exits non-zero when the invocation fails.

Examples:
  dreams call search_memory query="function that handles privacy" limit=3
  dreams call get_file_structure file_path=src/app.py
  dreams call generate_embedding --args '{"text": "hello world"}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callArgsJSON, "args", "", "arguments as a JSON object")
}

func runCall(cmd *cobra.Command, args []string) error {
	bag, err := buildArgs(callArgsJSON, args[1:])
	if err != nil {
		return err
	}

	res := dispatcher.Invoke(cmd.Context(), dispatch.Invocation{
		Tool: args[0],
		Args: bag,
	})

	if verbose {
		printStats(cmd)
	}

	if !res.OK() {
		theme := themeFor(cmd.ErrOrStderr())
		fmt.Fprintln(cmd.ErrOrStderr(), theme.failure(string(res.Failure.Kind))+" "+res.Failure.Message)
		return fmt.Errorf("%s failed", args[0])
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return nil
}

func printStats(cmd *cobra.Command) {
	theme := themeFor(cmd.ErrOrStderr())
	for _, t := range collector.Snapshot().Tools {
		status := theme.success("ok")
		if t.Failed > 0 {
			status = theme.failure("failed")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s in %dms\n", theme.name(t.Tool), status, t.TotalTimeMs)
	}
}
