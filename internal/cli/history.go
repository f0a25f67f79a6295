package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/queryir"
	"github.com/roach88/opgraph/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit     int
	Run       string // show the operations of one run
	Status    string // only runs with this status
	Operation string // outcomes of one operation title across runs
	State     string // with Operation, only outcomes in this state
}

// HistoryEntry is one run with its operations, when requested.
type HistoryEntry struct {
	ir.RunRecord
	Operations []ir.OperationRecord `json:"operations,omitempty"`
}

// HistoryResult holds the runs of a target, newest first.
type HistoryResult struct {
	Target    string               `json:"target"`
	Runs      []HistoryEntry       `json:"runs"`
	Operation string               `json:"operation,omitempty"`
	Records   []ir.OperationRecord `json:"records,omitempty"`
}

func (r HistoryResult) String() string {
	if r.Operation != "" {
		return r.operationString()
	}
	if len(r.Runs) == 0 {
		return fmt.Sprintf("No runs recorded for target %s.", r.Target)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Runs for target %s:\n", r.Target)
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "  #%d %s %-9s executed=%d up_to_date=%d failed=%d\n",
			run.Seq, run.ID, run.Status, run.Executed, run.UpToDate, run.Failed)
		for _, op := range run.Operations {
			fmt.Fprintf(&b, "      %d %q %s exit=%d %dms\n",
				op.OperationID, op.Title, op.State, op.ExitCode, op.DurationMS)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (r HistoryResult) operationString() string {
	if len(r.Records) == 0 {
		return fmt.Sprintf("No recorded outcomes of %q for target %s.", r.Operation, r.Target)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Outcomes of %q for target %s:\n", r.Operation, r.Target)
	for _, op := range r.Records {
		fmt.Fprintf(&b, "  %s %s exit=%d %dms\n", op.RunID, op.State, op.ExitCode, op.DurationMS)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluate runs",
		Long: `List the target's recorded evaluate runs, newest first.

Examples:
  opgraph history
  opgraph history --limit 5
  opgraph history --status failed
  opgraph history --operation "Link app" --state failed
  opgraph history --run 01920000-0000-7000-8000-000000000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run with its operations")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only runs with this status (succeeded|failed)")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "show one operation's outcomes across runs")
	cmd.Flags().StringVar(&opts.State, "state", "", "with --operation, only outcomes in this state")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	if opts.Status != "" && opts.Status != string(ir.RunSucceeded) && opts.Status != string(ir.RunFailed) {
		return formatter.Fail(ExitCommandError, "invalid status: "+opts.Status,
			fmt.Errorf("expected %s or %s", ir.RunSucceeded, ir.RunFailed))
	}
	if opts.State != "" && opts.Operation == "" {
		return formatter.Fail(ExitCommandError, "invalid flags", fmt.Errorf("--state requires --operation"))
	}

	ws, err := openWorkspace(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load configuration", err)
	}
	st, err := ws.openHistory()
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open history", err)
	}
	if st == nil {
		return formatter.Fail(ExitCommandError, "history is disabled",
			fmt.Errorf("set history.enabled = true"))
	}
	defer st.Close()

	result := HistoryResult{Target: opts.Target, Runs: []HistoryEntry{}}

	if opts.Run != "" {
		run, err := st.ReadRun(ctx, opts.Run)
		if err != nil {
			return formatter.Fail(ExitCommandError, "run not found: "+opts.Run, err)
		}
		ops, err := st.ReadRunOperations(ctx, run.ID)
		if err != nil {
			return formatter.Fail(ExitFailure, "failed to read run operations", err)
		}
		result.Target = run.Target
		result.Runs = append(result.Runs, HistoryEntry{RunRecord: run, Operations: ops})
		return formatter.Success(result)
	}

	if opts.Operation != "" {
		records, err := st.FindOperations(ctx, queryir.Join{
			Left: queryir.Select{From: store.TableOperations, Filter: queryir.All(
				queryir.Eq("title", opts.Operation),
				optionalEq("state", opts.State),
			)},
			Right: queryir.Select{From: store.TableRuns, Filter: queryir.Eq("target", opts.Target)},
			On:    queryir.On{Left: "run_id", Right: "id"},
			Limit: opts.Limit,
		})
		if err != nil {
			return formatter.Fail(ExitFailure, "failed to read history", err)
		}
		result.Operation = opts.Operation
		result.Records = records
		return formatter.Success(result)
	}

	runs, err := st.FindRuns(ctx, queryir.Select{
		From: store.TableRuns,
		Filter: queryir.All(
			queryir.Eq("target", opts.Target),
			optionalEq("status", opts.Status),
		),
		Limit: opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to read history", err)
	}
	for _, run := range runs {
		result.Runs = append(result.Runs, HistoryEntry{RunRecord: run})
	}
	return formatter.Success(result)
}

// optionalEq returns nil for an empty value so queryir.All drops it.
func optionalEq(field, value string) queryir.Predicate {
	if value == "" {
		return nil
	}
	return queryir.Eq(field, value)
}
