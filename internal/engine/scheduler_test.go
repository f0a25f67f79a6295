package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/testutil"
)

func diamond(t *testing.T) *ir.OperationGraph {
	return buildGraph(t,
		decl{name: "A", outputs: []string{"a.txt"}},
		decl{name: "B", inputs: []string{"a.txt"}, outputs: []string{"b.txt"}},
		decl{name: "C", inputs: []string{"a.txt"}, outputs: []string{"c.txt"}},
		decl{name: "D", inputs: []string{"b.txt", "c.txt"}},
	)
}

func TestScheduler_SequentialDepthFirst(t *testing.T) {
	g := diamond(t)
	launcher := testutil.NewFakeLauncher()

	report, err := newTestScheduler(launcher, testutil.NewMemFS()).Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, launcher.Arguments())
	assert.Equal(t, 4, report.Executed())
	assert.Equal(t, 0, report.Failed())
	for _, op := range g.Operations {
		assert.True(t, op.WasSuccessfulRun, "operation %d", op.ID)
	}
}

func TestScheduler_RootSubtreesInOrder(t *testing.T) {
	g := buildGraph(t,
		decl{name: "R1", outputs: []string{"r1.txt"}},
		decl{name: "R2", outputs: []string{"r2.txt"}},
		decl{name: "X", inputs: []string{"r1.txt"}},
		decl{name: "Y", inputs: []string{"r2.txt"}},
	)
	launcher := testutil.NewFakeLauncher()

	_, err := newTestScheduler(launcher, testutil.NewMemFS()).Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, []string{"R1", "X", "R2", "Y"}, launcher.Arguments())
}

func TestScheduler_ResultsRecorded(t *testing.T) {
	g := diamond(t)

	report, err := newTestScheduler(testutil.NewFakeLauncher(), testutil.NewMemFS()).Run(context.Background(), g)
	require.NoError(t, err)

	for _, op := range g.Operations {
		assert.Equal(t, op.DeclaredInput, op.ObservedInput)
		assert.Equal(t, op.DeclaredOutput, op.ObservedOutput)
	}

	require.Len(t, report.Results, 4)
	for i, r := range report.Results {
		assert.Equal(t, int64(i+1), r.Seq)
		assert.Equal(t, StateSucceeded, r.State)
	}
}

func TestScheduler_ProcessFailureAborts(t *testing.T) {
	g := buildGraph(t,
		decl{name: "A", outputs: []string{"a.txt"}},
		decl{name: "B", inputs: []string{"a.txt"}, outputs: []string{"b.txt"}},
		decl{name: "C", inputs: []string{"b.txt"}},
		decl{name: "Z"},
	)
	launcher := testutil.NewFakeLauncher().On("tool.exe", "B", testutil.FakeResult{ExitCode: 3})

	report, err := newTestScheduler(launcher, testutil.NewMemFS()).Run(context.Background(), g)
	require.Error(t, err)

	assert.True(t, IsProcessFailure(err))
	assert.True(t, errors.Is(err, ir.ErrHandled))
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, err.Error(), `operation 2 "B"`)

	assert.Equal(t, []string{"A", "B"}, launcher.Arguments(), "nothing scheduled after the failure")
	assert.Equal(t, map[ir.OperationID]OperationState{1: StateSucceeded, 2: StateFailed}, states(report))
	assert.Equal(t, 3, report.Results[1].ExitCode)
	assert.False(t, g.Operations[2].WasSuccessfulRun)
	assert.False(t, g.Operations[4].WasSuccessfulRun)
}

func TestScheduler_LaunchFailure(t *testing.T) {
	g := buildGraph(t, decl{name: "A"})
	launcher := testutil.NewFakeLauncher().On("tool.exe", "A", testutil.FakeResult{Err: errors.New("executable not found")})

	_, err := newTestScheduler(launcher, testutil.NewMemFS()).Run(context.Background(), g)
	require.Error(t, err)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeLaunchFailed, ee.Code)
	assert.Contains(t, err.Error(), "executable not found")
}

func TestScheduler_WriteFile(t *testing.T) {
	g := buildGraph(t,
		decl{name: ">gen/out.txt hello  world", outputs: []string{"gen/out.txt"}},
		decl{name: "Consume", inputs: []string{"gen/out.txt"}},
	)
	launcher := testutil.NewFakeLauncher()
	fs := testutil.NewMemFS()

	report, err := newTestScheduler(launcher, fs).Run(context.Background(), g)
	require.NoError(t, err)

	data, ok := fs.ReadFile("C:/Work/gen/out.txt")
	require.True(t, ok)
	assert.Equal(t, "hello  world", data)
	assert.Equal(t, []string{"Consume"}, launcher.Arguments(), "write-file never reaches the launcher")
	assert.Equal(t, 2, report.Executed())
}

func TestScheduler_WriteFileQuotedDestination(t *testing.T) {
	g := buildGraph(t, decl{name: `>"my dir/a b.txt" x`, outputs: []string{"my dir/a b.txt"}})
	fs := testutil.NewMemFS()

	_, err := newTestScheduler(testutil.NewFakeLauncher(), fs).Run(context.Background(), g)
	require.NoError(t, err)

	data, ok := fs.ReadFile("C:/Work/my dir/a b.txt")
	require.True(t, ok)
	assert.Equal(t, "x", data)
}

func TestScheduler_WriteFileInvalidArguments(t *testing.T) {
	g := buildGraph(t, decl{name: `>"unterminated`})

	_, err := newTestScheduler(testutil.NewFakeLauncher(), testutil.NewMemFS()).Run(context.Background(), g)
	require.Error(t, err)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeWriteFailed, ee.Code)
}

func TestScheduler_WriteFileUndeclaredDestination(t *testing.T) {
	g := buildGraph(t, decl{name: ">elsewhere.txt x", outputs: []string{"declared.txt"}})
	fs := testutil.NewMemFS()

	report, err := newTestScheduler(testutil.NewFakeLauncher(), fs).Run(context.Background(), g)
	require.Error(t, err)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeWriteFailed, ee.Code)
	assert.Contains(t, err.Error(), "not a declared output")
	assert.Equal(t, 1, report.Failed())

	_, ok := fs.ReadFile("C:/Work/elsewhere.txt")
	assert.False(t, ok)
}

func underflowGraph() *ir.OperationGraph {
	g := ir.NewOperationGraph()
	command := func(args string) ir.CommandInfo {
		return ir.CommandInfo{WorkingDirectory: "C:/Work/", Executable: "tool.exe", Arguments: args}
	}
	g.Operations[1] = &ir.OperationInfo{ID: 1, Title: "P1", Command: command("P1"), Children: []ir.OperationID{3}, DependencyCount: 1}
	g.Operations[2] = &ir.OperationInfo{ID: 2, Title: "P2", Command: command("P2"), Children: []ir.OperationID{3}, DependencyCount: 1}
	g.Operations[3] = &ir.OperationInfo{ID: 3, Title: "Child", Command: command("Child"), DependencyCount: 1}
	g.RootOperationIDs = []ir.OperationID{1, 2}
	return g
}

func TestScheduler_DependencyUnderflow(t *testing.T) {
	launcher := testutil.NewFakeLauncher()

	_, err := newTestScheduler(launcher, testutil.NewMemFS()).Run(context.Background(), underflowGraph())
	require.Error(t, err)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeDependencyUnderflow, ee.Code)
	assert.Equal(t, ir.OperationID(3), ee.Operation)
	assert.Equal(t, []string{"P1", "Child", "P2"}, launcher.Arguments())
}

func TestScheduler_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	launcher := testutil.NewFakeLauncher()

	_, err := newTestScheduler(launcher, testutil.NewMemFS()).Run(ctx, diamond(t))
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, launcher.Calls())
}

func TestScheduler_CancelKillsRunningOperation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	launcher := testutil.NewFakeLauncher().On("tool.exe", "A", testutil.FakeResult{
		Run: func(ctx context.Context) (int, error) {
			cancel()
			<-ctx.Done()
			return -1, ctx.Err()
		},
	})
	g := diamond(t)

	report, err := newTestScheduler(launcher, testutil.NewMemFS()).Run(ctx, g)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.Equal(t, map[ir.OperationID]OperationState{1: StateFailed}, states(report))
	assert.False(t, g.Operations[1].WasSuccessfulRun)
}

func TestScheduler_ForwardsProcessOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	launcher := testutil.NewFakeLauncher().On("tool.exe", "A", testutil.FakeResult{
		Stdout: []string{"compiling"},
		Stderr: []string{"warning C4100"},
	})

	s := NewScheduler(launcher, logger, WithFileSystem(testutil.NewMemFS()))
	_, err := s.Run(context.Background(), buildGraph(t, decl{name: "A"}))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg=compiling operation=1 title=A`)
	assert.Contains(t, out, `level=ERROR msg="warning C4100" operation=1 title=A`)
}

func TestScheduler_NeverReadyIsReported(t *testing.T) {
	g := ir.NewOperationGraph()
	g.Operations[1] = &ir.OperationInfo{ID: 1, Command: ir.CommandInfo{Executable: "tool.exe", Arguments: "A"}, Children: []ir.OperationID{2}, DependencyCount: 1}
	g.Operations[2] = &ir.OperationInfo{ID: 2, Command: ir.CommandInfo{Executable: "tool.exe", Arguments: "B"}, DependencyCount: 2}
	g.RootOperationIDs = []ir.OperationID{1}

	var buf bytes.Buffer
	s := NewScheduler(testutil.NewFakeLauncher(), slog.New(slog.NewTextHandler(&buf, nil)), WithFileSystem(testutil.NewMemFS()))
	report, err := s.Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Executed())
	assert.Contains(t, buf.String(), "operations never became ready")
}

func TestScheduler_Empty(t *testing.T) {
	report, err := newTestScheduler(testutil.NewFakeLauncher(), testutil.NewMemFS()).Run(context.Background(), ir.NewOperationGraph())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestOperationState_String(t *testing.T) {
	assert.Equal(t, "up_to_date", StateUpToDate.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "OperationState(42)", OperationState(42).String())
}

func TestReport_Records(t *testing.T) {
	report, err := newTestScheduler(testutil.NewFakeLauncher(), testutil.NewMemFS()).Run(context.Background(), diamond(t))
	require.NoError(t, err)

	records := report.Records("run-1")
	require.Len(t, records, 4)
	for i, rec := range records {
		assert.Equal(t, "run-1", rec.RunID)
		assert.Equal(t, report.Results[i].ID, rec.OperationID)
		assert.Equal(t, "succeeded", rec.State)
		assert.Equal(t, int64(i+1), rec.Seq)
	}
}
