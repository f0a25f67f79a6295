package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/opgraph/internal/codec"
	"github.com/roach88/opgraph/internal/engine"
	"github.com/roach88/opgraph/internal/graph"
	"github.com/roach88/opgraph/internal/ir"
)

// EvaluateOptions holds flags for the evaluate command.
type EvaluateOptions struct {
	*RootOptions
	Workers     int    // overrides build.workers when > 0
	Full        bool   // run every operation regardless of prior results
	MetricsFile string // Prometheus textfile output
}

// EvaluateResult summarizes an evaluate run.
type EvaluateResult struct {
	Target     string       `json:"target"`
	RunID      string       `json:"run_id,omitempty"`
	Status     ir.RunStatus `json:"status"`
	Operations int          `json:"operations"`
	Executed   int          `json:"executed"`
	UpToDate   int          `json:"up_to_date"`
	Failed     int          `json:"failed"`
	Digest     string       `json:"digest"`
}

func (r EvaluateResult) String() string {
	return fmt.Sprintf("✓ Evaluated %d operation(s) for target %s: %d executed, %d up to date",
		r.Operations, r.Target, r.Executed, r.UpToDate)
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvaluateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Execute the generated operation graph",
		Long: `Execute the target's operation graph.

Results of the previous successful evaluate are merged in first, so
operations whose inputs and outputs are unchanged are skipped. Results are
saved only when every operation succeeds. Each run is recorded in the
build history.

Exit codes:
  0 - All operations succeeded or were up to date
  1 - An operation failed or the graph is unusable
  2 - Command error (no graph, bad configuration)

Examples:
  opgraph evaluate
  opgraph evaluate --workers 8
  opgraph evaluate --full --metrics-file /var/lib/node_exporter/opgraph.prom`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Workers, "workers", "j", 0, "concurrent operations (default build.workers)")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "ignore prior results and run every operation")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runEvaluate(opts *EvaluateOptions, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd)
	if opts.Workers < 0 {
		return formatter.Fail(ExitCommandError, "invalid --workers",
			fmt.Errorf("must be non-negative, got %d", opts.Workers))
	}

	ws, err := openWorkspace(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load configuration", err)
	}

	graphPath := ws.path(GraphFileName)
	g, err := codec.LoadOperationGraph(graphPath)
	if err != nil {
		if isNotExist(err) {
			return formatter.Fail(ExitCommandError, "no graph for target "+opts.Target+"; run generate first", err)
		}
		return formatter.Fail(ExitFailure, "failed to load graph", err)
	}
	if err := graph.Validate(g); err != nil {
		return formatter.Fail(ExitFailure, "invalid graph", err)
	}
	digest := ir.GraphDigest(codec.EncodeOperationGraph(g))

	incremental := ws.cfg.Build.Incremental && !opts.Full
	if incremental {
		previous, found, err := codec.TryLoadOperationGraph(ws.path(ResultsFileName), ws.logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to read prior results", err)
		}
		if found {
			merged, err := graph.MergeResults(g, previous)
			if err != nil {
				ws.logger.Warn("discarding prior results", "error", err)
			} else {
				formatter.VerboseLog("Merged prior results for %d operation(s)", merged)
			}
		}
	}

	workers := ws.cfg.Build.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = engine.ExecLauncher{}
	}
	metrics := engine.NewMetrics()
	scheduler := engine.NewScheduler(launcher, ws.logger,
		engine.WithWorkers(workers),
		engine.WithIncremental(incremental),
		engine.WithMetrics(metrics))

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := scheduler.Run(ctx, g)

	result := EvaluateResult{
		Target:     opts.Target,
		Status:     ir.RunSucceeded,
		Operations: len(g.Operations),
		Executed:   report.Executed(),
		UpToDate:   report.UpToDate(),
		Failed:     report.Failed(),
		Digest:     digest,
	}
	if runErr != nil {
		result.Status = ir.RunFailed
		revokePriorResults(ws, g, report.Ran())
	} else if err := codec.SaveOperationGraph(ws.path(ResultsFileName), g); err != nil {
		return formatter.Fail(ExitFailure, "failed to write results", err)
	}

	result.RunID = recordHistory(context.WithoutCancel(ctx), ws, opts, result, report)

	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			return formatter.Fail(ExitFailure, "failed to write metrics", err)
		}
	}

	if runErr != nil {
		return formatter.Fail(ExitFailure, "evaluation failed", runErr)
	}
	return formatter.Success(result)
}

// revokePriorResults clears the saved success of operations that ran in a
// failed run, so the next evaluate does not trust outputs they may have
// rewritten. Nothing from the failed run itself is saved.
func revokePriorResults(ws *workspace, g *ir.OperationGraph, ran []ir.OperationID) {
	path := ws.path(ResultsFileName)
	previous, found, err := codec.TryLoadOperationGraph(path, ws.logger)
	if err != nil {
		ws.logger.Warn("failed to read prior results; run evaluate --full", "error", err)
		return
	}
	if !found {
		return
	}
	if graph.RevokeResults(previous, g, ran) == 0 {
		return
	}
	if err := codec.SaveOperationGraph(path, previous); err != nil {
		ws.logger.Warn("failed to revoke prior results; run evaluate --full", "error", err)
	}
}

// recordHistory stores the run and prunes old runs of the target. History
// problems are logged and never fail the build. Returns the run id, empty
// when nothing was recorded.
func recordHistory(ctx context.Context, ws *workspace, opts *EvaluateOptions, result EvaluateResult, report *engine.Report) string {
	st, err := ws.openHistory()
	if err != nil {
		ws.logger.Warn("build history unavailable", "error", err)
		return ""
	}
	if st == nil {
		return ""
	}
	defer func() {
		if err := st.Close(); err != nil {
			ws.logger.Warn("error closing history", "error", err)
		}
	}()

	ids := opts.RunIDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	id := ids.Generate()

	run, err := st.WriteRun(ctx, ir.RunRecord{
		ID:          id,
		Target:      result.Target,
		GraphDigest: result.Digest,
		Status:      result.Status,
		Executed:    result.Executed,
		UpToDate:    result.UpToDate,
		Failed:      result.Failed,
	}, report.Records(id))
	if err != nil {
		ws.logger.Warn("failed to record build history", "error", err)
		return ""
	}
	ws.logger.Debug("recorded run", "run", run.ID, "seq", run.Seq)

	if keep := ws.cfg.History.Keep; keep > 0 {
		pruned, err := st.PruneRuns(ctx, result.Target, keep)
		if err != nil {
			ws.logger.Warn("failed to prune build history", "error", err)
		} else if pruned > 0 {
			ws.logger.Debug("pruned build history", "runs", pruned)
		}
	}
	return run.ID
}
