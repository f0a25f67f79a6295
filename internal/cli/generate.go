package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/opgraph/internal/buildstate"
	"github.com/roach88/opgraph/internal/codec"
	"github.com/roach88/opgraph/internal/files"
	"github.com/roach88/opgraph/internal/graph"
	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/manifest"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Active string   // active state file, defaults to the target's active.bvt
	Set    []string // key=value entries stored in the active state
}

// GenerateResult summarizes a successful generate.
type GenerateResult struct {
	Target     string `json:"target"`
	Operations int    `json:"operations"`
	Roots      int    `json:"roots"`
	Files      int    `json:"files"`
	Digest     string `json:"digest"`
	GraphFile  string `json:"graph_file"`
	SharedFile string `json:"shared_file"`
}

func (r GenerateResult) String() string {
	return fmt.Sprintf("✓ Generated %d operation(s), %d root(s) for target %s\nWrote %s",
		r.Operations, r.Roots, r.Target, r.GraphFile)
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <manifest-dir>",
		Short: "Build the operation graph from a CUE manifest",
		Long: `Compile the CUE manifest in a directory and build its operation graph.

The active state (build parameters such as the configuration name) is
unified into the manifest's "state" field before its declarations are
read. --set stores entries in the active state for this and later builds.

Nothing is written unless the whole graph is built.

Examples:
  opgraph generate ./build
  opgraph generate ./build --set mode=release
  opgraph generate ./build --target release --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Active, "active", "", "active state file (default <state>/<target>/"+ActiveFileName+")")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "store key=value in the active state (repeatable, dotted keys nest)")

	return cmd
}

func runGenerate(opts *GenerateOptions, manifestDir string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	ws, err := openWorkspace(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load configuration", err)
	}

	activePath := opts.Active
	if activePath == "" {
		activePath = ws.path(ActiveFileName)
	}
	active, found, err := codec.TryLoadValueDocument(activePath, ws.logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read active state", err)
	}
	if !found {
		active = ir.NewTable()
	}
	for _, entry := range opts.Set {
		if err := assign(active, entry); err != nil {
			return formatter.Fail(ExitCommandError, "invalid --set", err)
		}
	}

	m, err := manifest.Load(manifestDir, active)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to load manifest", err)
	}
	formatter.VerboseLog("Loaded %d CUE file(s): %d operation(s), %d file write(s)",
		m.FileCount, len(m.Operations), len(m.WriteFiles))

	generator, err := graph.NewGenerator(files.NewTable(),
		access(ws.cfg.ReadAccess(), m.Access.Read),
		access(ws.cfg.WriteAccess(), m.Access.Write),
		ws.logger)
	if err != nil {
		return formatter.Fail(ExitFailure, "invalid sandbox", err)
	}

	state := buildstate.New(active, generator, ws.logger)
	if err := buildstate.RunTasks(ctx, state, manifest.NewTask(m)); err != nil {
		return formatter.Fail(ExitFailure, "generation failed", err)
	}
	g, err := state.BuildGraph()
	if err != nil {
		return formatter.Fail(ExitFailure, "generation failed", err)
	}

	if err := ws.ensureDir(); err != nil {
		return formatter.Fail(ExitCommandError, "failed to write state", err)
	}
	encoded := codec.EncodeOperationGraph(g)
	if err := codec.WriteFileAtomic(ws.path(GraphFileName), encoded); err != nil {
		return formatter.Fail(ExitFailure, "failed to write graph", err)
	}
	if err := codec.SaveValueDocument(ws.path(SharedFileName), state.SharedState()); err != nil {
		return formatter.Fail(ExitFailure, "failed to write shared state", err)
	}
	if len(opts.Set) > 0 {
		if err := codec.SaveValueDocument(activePath, active); err != nil {
			return formatter.Fail(ExitFailure, "failed to write active state", err)
		}
	}

	return formatter.Success(GenerateResult{
		Target:     opts.Target,
		Operations: len(g.Operations),
		Roots:      len(g.RootOperationIDs),
		Files:      len(g.ReferencedFiles),
		Digest:     ir.GraphDigest(encoded),
		GraphFile:  ws.path(GraphFileName),
		SharedFile: ws.path(SharedFileName),
	})
}

// assign stores a key=value entry in table. Dotted keys address nested
// tables.
func assign(table ir.Table, entry string) error {
	key, value, ok := strings.Cut(entry, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", entry)
	}
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		if part == "" {
			return fmt.Errorf("empty key segment in %q", key)
		}
		table = table.EnsureTable(part)
	}
	last := parts[len(parts)-1]
	if last == "" {
		return fmt.Errorf("empty key segment in %q", key)
	}
	table[last] = ir.String(value)
	return nil
}
