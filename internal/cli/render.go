package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dreams-mcp/internal/config"
	"github.com/raphaelgruber/dreams-mcp/internal/dispatch"
	"github.com/raphaelgruber/dreams-mcp/internal/runner"
)

var (
	renderArgsJSON string
	renderShell    bool
)

var renderCmd = &cobra.Command{
	Use:   "render <tool> [key=value ...]",
	Short: "Print the script a tool call would run, without running it",
	Long: `Validate the arguments and print the rendered Python script.

In stdin mode the JSON payload follows the script. With --shell in inline
mode the full shell command line is printed instead.

Examples:
  dreams render search_memory query=auth
  DREAMS_ARG_MODE=inline dreams render generate_embedding text="it's" --shell`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderArgsJSON, "args", "", "arguments as a JSON object")
	renderCmd.Flags().BoolVar(&renderShell, "shell", false, "print the shell command line (inline mode)")
}

func runRender(cmd *cobra.Command, args []string) error {
	bag, err := buildArgs(renderArgsJSON, args[1:])
	if err != nil {
		return err
	}

	s, err := dispatcher.Prepare(dispatch.Invocation{Tool: args[0], Args: bag})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if renderShell {
		if cfg.ArgMode != config.ArgModeInline {
			return fmt.Errorf("--shell needs arg_mode %q", config.ArgModeInline)
		}
		fmt.Fprintln(out, runner.New(cfg, nil).ShellCommand(s.Body))
		return nil
	}

	fmt.Fprint(out, s.Body)
	if s.Payload != nil {
		fmt.Fprintf(out, "\n# stdin\n%s\n", s.Payload)
	}
	return nil
}
