package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/opgraph/internal/config"
	"github.com/roach88/opgraph/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to opgraph.toml, empty for defaults
	Target  string // names the state subdirectory

	// Launcher runs process operations. Defaults to engine.ExecLauncher.
	Launcher engine.Launcher

	// RunIDs generates history run ids. Defaults to engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultTarget is the state subdirectory used when --target is not given.
const DefaultTarget = "default"

// NewRootCommand creates the root command for the opgraph CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opgraph",
		Short: "opgraph - operation graph builds",
		Long: `Generate and evaluate operation graphs.

A build runs in two phases. generate turns a CUE manifest of operations
into a dependency graph; evaluate executes that graph, skipping
operations whose results are still valid.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Target == "" {
				return NewExitError(ExitCommandError, "target must not be empty")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to "+config.FileName)
	cmd.PersistentFlags().StringVarP(&opts.Target, "target", "t", DefaultTarget, "build target name")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewEvaluateCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
