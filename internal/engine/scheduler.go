package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/opgraph/internal/ir"
)

// OperationState is the lifecycle state of one operation in a run.
type OperationState int32

const (
	StatePending OperationState = iota
	StateReady
	StateRunning
	StateSucceeded
	StateFailed
	StateUpToDate
)

// String returns the state name used in logs and history rows.
func (s OperationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateUpToDate:
		return "up_to_date"
	default:
		return fmt.Sprintf("OperationState(%d)", int32(s))
	}
}

// OperationResult records how one operation finished.
type OperationResult struct {
	ID       ir.OperationID
	Title    string
	State    OperationState
	ExitCode int
	Duration time.Duration
	Seq      int64
}

// Report collects the results of a run in completion order.
type Report struct {
	mu      sync.Mutex
	Results []OperationResult
}

func (r *Report) add(result OperationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results = append(r.Results, result)
}

func (r *Report) count(state OperationState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.Results {
		if res.State == state {
			n++
		}
	}
	return n
}

// Executed returns the number of operations that ran successfully.
func (r *Report) Executed() int { return r.count(StateSucceeded) }

// UpToDate returns the number of operations skipped as up to date.
func (r *Report) UpToDate() int { return r.count(StateUpToDate) }

// Failed returns the number of operations that failed.
func (r *Report) Failed() int { return r.count(StateFailed) }

// Ran returns the ids of operations whose command was started in this run,
// whether it succeeded or failed, in ascending order.
func (r *Report) Ran() []ir.OperationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []ir.OperationID
	for _, res := range r.Results {
		if res.State == StateSucceeded || res.State == StateFailed {
			ids = append(ids, res.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

// Records converts the results into history rows for runID.
func (r *Report) Records(runID string) []ir.OperationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.OperationRecord, len(r.Results))
	for i, res := range r.Results {
		out[i] = ir.OperationRecord{
			RunID:       runID,
			OperationID: res.ID,
			Seq:         res.Seq,
			Title:       res.Title,
			State:       res.State.String(),
			ExitCode:    res.ExitCode,
			DurationMS:  res.Duration.Milliseconds(),
		}
	}
	return out
}

// Scheduler executes an operation graph.
//
// With one worker it walks depth-first from the roots, executing an
// operation when its last parent reaches it. With more workers, ready
// operations are fed to a pool over a channel. Both drivers use the same
// per-operation counters, initialized from DependencyCount, so an operation
// runs exactly once and only after every parent has finished.
//
// Failure policy: once an operation fails no further operation is
// dispatched; operations already running finish, and the first failure is
// returned. Cancelling ctx kills running processes.
type Scheduler struct {
	launcher    Launcher
	fs          FileSystem
	logger      *slog.Logger
	metrics     *Metrics
	clock       *Clock
	workers     int
	incremental bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the number of concurrent workers. Values below 1 use 1.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		s.workers = max(n, 1)
	}
}

// WithIncremental enables skipping operations whose prior results are
// still valid.
func WithIncremental(enabled bool) Option {
	return func(s *Scheduler) {
		s.incremental = enabled
	}
}

// WithFileSystem replaces the host file system.
func WithFileSystem(fs FileSystem) Option {
	return func(s *Scheduler) {
		s.fs = fs
	}
}

// WithMetrics records execution metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithClock sets the clock used to stamp results.
func WithClock(c *Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// NewScheduler creates a scheduler that runs processes with launcher.
func NewScheduler(launcher Launcher, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		launcher: launcher,
		fs:       OSFileSystem{},
		logger:   logger,
		clock:    NewClock(),
		workers:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// node is the per-run state of one operation.
type node struct {
	op        *ir.OperationInfo
	parents   []ir.OperationID
	remaining atomic.Int64
	state     atomic.Int32
	executed  atomic.Bool
}

func (n *node) setState(s OperationState) {
	n.state.Store(int32(s))
}

// run is the shared state of one Run call.
type run struct {
	graph  *ir.OperationGraph
	nodes  map[ir.OperationID]*node
	report *Report
}

func newRun(g *ir.OperationGraph) *run {
	r := &run{
		graph:  g,
		nodes:  make(map[ir.OperationID]*node, len(g.Operations)),
		report: &Report{},
	}
	for id, op := range g.Operations {
		n := &node{op: op}
		n.remaining.Store(int64(op.DependencyCount))
		r.nodes[id] = n
	}
	for _, id := range g.SortedOperationIDs() {
		for _, child := range g.Operations[id].Children {
			if n, ok := r.nodes[child]; ok {
				n.parents = append(n.parents, id)
			}
		}
	}
	return r
}

// arrive decrements the remaining counter of id on behalf of one parent
// (or the run itself for roots). It reports whether the operation became
// ready.
func (r *run) arrive(id ir.OperationID) (*node, bool, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, false, fmt.Errorf("operation %d is not in the graph", id)
	}
	left := n.remaining.Add(-1)
	if left < 0 {
		return n, false, NewUnderflowError(n.op)
	}
	if left == 0 {
		n.setState(StateReady)
		return n, true, nil
	}
	return n, false, nil
}

// Run executes g, updating each operation's results in place, and returns
// the per-operation report. The report is returned even when err is set.
func (s *Scheduler) Run(ctx context.Context, g *ir.OperationGraph) (*Report, error) {
	r := newRun(g)
	s.logger.Info("evaluating graph",
		"operations", len(g.Operations),
		"roots", len(g.RootOperationIDs),
		"workers", s.workers,
		"incremental", s.incremental)

	var err error
	if s.workers > 1 {
		err = s.runParallel(ctx, r)
	} else {
		err = s.runSequential(ctx, r)
	}

	if err == nil {
		var pending []ir.OperationID
		for id, n := range r.nodes {
			if OperationState(n.state.Load()) == StatePending {
				pending = append(pending, id)
			}
		}
		if len(pending) > 0 {
			slices.Sort(pending)
			s.logger.Warn("operations never became ready", "operations", pending)
		}
	}

	s.logger.Info("evaluation finished",
		"executed", r.report.Executed(),
		"up_to_date", r.report.UpToDate(),
		"failed", r.report.Failed())
	return r.report, err
}

// execute runs one ready operation and records its result.
func (s *Scheduler) execute(ctx context.Context, r *run, n *node) error {
	op := n.op
	kind := KindProcess
	if op.Command.IsWriteFile() {
		kind = KindWriteFile
	}

	if s.incremental && s.upToDate(r, n) {
		n.setState(StateUpToDate)
		s.logger.Debug("operation up to date", "operation", op.ID, "title", op.Title)
		s.metrics.RecordOperation(kind, ResultUpToDate, 0)
		r.report.add(OperationResult{ID: op.ID, Title: op.Title, State: StateUpToDate, Seq: s.clock.Next()})
		return nil
	}

	if err := ctx.Err(); err != nil {
		n.setState(StateFailed)
		return newExecutionError(ErrCodeCancelled, op, "run cancelled", err)
	}

	n.setState(StateRunning)
	n.executed.Store(true)
	op.WasSuccessfulRun = false
	s.logger.Info("running operation", "operation", op.ID, "title", op.Title)

	start := time.Now()
	exitCode, err := s.invoke(ctx, r.graph, op)
	elapsed := time.Since(start)

	if err != nil {
		n.setState(StateFailed)
		s.metrics.RecordOperation(kind, ResultFailed, elapsed)
		r.report.add(OperationResult{
			ID: op.ID, Title: op.Title, State: StateFailed,
			ExitCode: exitCode, Duration: elapsed, Seq: s.clock.Next(),
		})
		s.logger.Error("operation failed", "operation", op.ID, "title", op.Title, "error", err)
		return err
	}

	op.WasSuccessfulRun = true
	op.ObservedInput = slices.Clone(op.DeclaredInput)
	op.ObservedOutput = slices.Clone(op.DeclaredOutput)
	n.setState(StateSucceeded)
	s.metrics.RecordOperation(kind, ResultSucceeded, elapsed)
	r.report.add(OperationResult{
		ID: op.ID, Title: op.Title, State: StateSucceeded,
		Duration: elapsed, Seq: s.clock.Next(),
	})
	return nil
}

// invoke runs the command itself and maps its outcome to an ExecutionError.
func (s *Scheduler) invoke(ctx context.Context, g *ir.OperationGraph, op *ir.OperationInfo) (int, error) {
	if op.Command.IsWriteFile() {
		return 0, s.writeFile(g, op)
	}

	logger := s.logger.With("operation", op.ID, "title", op.Title)
	exitCode, err := s.launcher.Launch(ctx, op.Command,
		func(line string) { logger.Info(line) },
		func(line string) { logger.Error(line) })

	switch {
	case ctx.Err() != nil:
		return -1, newExecutionError(ErrCodeCancelled, op, "run cancelled", ctx.Err())
	case err != nil:
		return -1, newExecutionError(ErrCodeLaunchFailed, op, "could not run "+op.Command.Executable, err)
	case exitCode != 0:
		return exitCode, NewProcessError(op, exitCode)
	}
	return 0, nil
}
