package cli

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/roach88/opgraph/internal/codec"
	"github.com/roach88/opgraph/internal/graph"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Results bool // show the last successful results instead of the generated graph
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [graph-file]",
		Short: "Print an operation graph",
		Long: `Print an operation graph file. Without an argument the target's
generated graph is shown, or its last results with --results.

Text output lists operations in id order; --format json prints the graph
structure.

Examples:
  opgraph show
  opgraph show --results
  opgraph show ./state/default/generate.bog --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runShow(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Results, "results", false, "show the last successful evaluate results")

	return cmd
}

func runShow(opts *ShowOptions, path string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd)

	if path == "" {
		ws, err := openWorkspace(opts.RootOptions, cmd)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to load configuration", err)
		}
		path = ws.path(GraphFileName)
		if opts.Results {
			path = ws.path(ResultsFileName)
		}
	}

	g, err := codec.LoadOperationGraph(path)
	if err != nil {
		if isNotExist(err) {
			return formatter.Fail(ExitCommandError, "graph file not found", err)
		}
		return formatter.Fail(ExitFailure, "failed to load graph", err)
	}
	formatter.VerboseLog("Loaded %s: %d operation(s)", path, len(g.Operations))

	if formatter.Format == "json" {
		return formatter.Success(g)
	}

	var buf bytes.Buffer
	if err := graph.WriteText(&buf, g); err != nil {
		return formatter.Fail(ExitFailure, "failed to render graph", err)
	}
	_, err = formatter.Writer.Write(buf.Bytes())
	return err
}
