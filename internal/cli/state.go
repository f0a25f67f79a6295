package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/opgraph/internal/codec"
	"github.com/roach88/opgraph/internal/ir"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Shared bool // show the shared state written by generate
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state [value-file]",
		Short: "Print a state document as canonical JSON",
		Long: `Print a binary value document as canonical JSON: sorted keys, no
HTML escaping, NFC-normalized strings.

Without an argument the target's active state is shown, or the shared
state written by generate with --shared.

Examples:
  opgraph state
  opgraph state --shared
  opgraph state ./state/default/active.bvt`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runState(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Shared, "shared", false, "show the shared state instead of the active state")

	return cmd
}

func runState(opts *StateOptions, path string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd)

	if path == "" {
		ws, err := openWorkspace(opts.RootOptions, cmd)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to load configuration", err)
		}
		path = ws.path(ActiveFileName)
		if opts.Shared {
			path = ws.path(SharedFileName)
		}
	}

	table, err := codec.LoadValueDocument(path)
	if err != nil {
		if isNotExist(err) {
			return formatter.Fail(ExitCommandError, "state file not found", err)
		}
		return formatter.Fail(ExitFailure, "failed to load state", err)
	}

	data, err := ir.MarshalCanonical(table)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to render state", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(rawJSON(data))
	}
	return formatter.Success(string(data))
}

// rawJSON embeds already-encoded JSON in a response without re-encoding.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	return r, nil
}
