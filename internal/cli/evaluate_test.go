package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/codec"
	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/store"
	"github.com/roach88/opgraph/internal/testutil"
)

func generated(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	_, err := f.run(nil, "generate", f.manifest)
	require.NoError(t, err)
	return f
}

func readHistory(t *testing.T, f *fixture) []ir.RunRecord {
	t.Helper()
	st, err := store.Open(filepath.Join(f.state, HistoryFileName))
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ReadRuns(context.Background(), DefaultTarget, 0)
	require.NoError(t, err)
	return runs
}

func TestEvaluate_RunsEveryOperation(t *testing.T) {
	f := generated(t)
	launcher := f.producingLauncher()

	out, err := f.run(launcher, "evaluate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Evaluated 3 operation(s) for target default: 3 executed, 0 up to date")

	assert.Equal(t, []string{"main.c", "main.o"}, launcher.Arguments())
	content, err := os.ReadFile(f.workPath("config.h"))
	require.NoError(t, err)
	assert.Equal(t, "mode=debug", string(content))

	results, err := codec.LoadOperationGraph(f.statePath(ResultsFileName))
	require.NoError(t, err)
	for _, op := range results.Operations {
		assert.True(t, op.WasSuccessfulRun, "operation %d", op.ID)
		assert.Equal(t, op.DeclaredOutput, op.ObservedOutput)
	}

	runs := readHistory(t, f)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, ir.RunSucceeded, runs[0].Status)
	assert.Equal(t, 3, runs[0].Executed)
	assert.NotEmpty(t, runs[0].GraphDigest)
}

func TestEvaluate_SecondRunIsUpToDate(t *testing.T) {
	f := generated(t)

	_, err := f.run(f.producingLauncher(), "evaluate")
	require.NoError(t, err)
	f.age("main.c", "config.h")

	launcher := f.producingLauncher()
	out, err := f.run(launcher, "--format", "json", "evaluate")
	require.NoError(t, err)
	assert.Empty(t, launcher.Calls())

	var resp struct {
		Data EvaluateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 0, resp.Data.Executed)
	assert.Equal(t, 3, resp.Data.UpToDate)
	assert.Equal(t, "run-3", resp.Data.RunID)
	assert.Equal(t, ir.RunSucceeded, resp.Data.Status)
}

func TestEvaluate_ChangedInputReruns(t *testing.T) {
	f := generated(t)

	_, err := f.run(f.producingLauncher(), "evaluate")
	require.NoError(t, err)
	f.age("main.c", "config.h", "main.o", "app")
	require.NoError(t, os.WriteFile(f.workPath("main.c"), []byte("int main() { return 1; }\n"), 0o644))

	launcher := f.producingLauncher()
	_, err = f.run(launcher, "evaluate")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.c", "main.o"}, launcher.Arguments())
}

func TestEvaluate_FullIgnoresPriorResults(t *testing.T) {
	f := generated(t)

	_, err := f.run(f.producingLauncher(), "evaluate")
	require.NoError(t, err)
	f.age("main.c", "config.h")

	launcher := f.producingLauncher()
	_, err = f.run(launcher, "evaluate", "--full")
	require.NoError(t, err)
	assert.Len(t, launcher.Calls(), 2)
}

func TestEvaluate_Parallel(t *testing.T) {
	f := generated(t)
	launcher := f.producingLauncher()

	_, err := f.run(launcher, "evaluate", "--workers", "4")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.c", "main.o"}, launcher.Arguments())
}

func TestEvaluate_FailureKeepsPriorResults(t *testing.T) {
	f := generated(t)
	launcher := testutil.NewFakeLauncher().
		On("cc", "main.c", testutil.FakeResult{ExitCode: 2, Stderr: []string{"main.c:1: error"}})

	out, err := f.run(launcher, "evaluate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [PROCESS_FAILED]")
	assert.Equal(t, []string{"main.c"}, launcher.Arguments())

	_, statErr := os.Stat(f.statePath(ResultsFileName))
	assert.True(t, os.IsNotExist(statErr))

	runs := readHistory(t, f)
	require.Len(t, runs, 1)
	assert.Equal(t, ir.RunFailed, runs[0].Status)
	assert.Equal(t, 1, runs[0].Executed)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestEvaluate_FailureJSONDetails(t *testing.T) {
	f := generated(t)
	launcher := testutil.NewFakeLauncher().
		On("ld", "main.o", testutil.FakeResult{ExitCode: 7})

	out, err := f.run(launcher, "--format", "json", "evaluate")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PROCESS_FAILED", resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Link", details["title"])
	assert.Equal(t, float64(7), details["exit_code"])
	assert.Equal(t, float64(3), details["operation"])
}

func TestEvaluate_NoGraph(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(nil, "evaluate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]")
	assert.Contains(t, out, "run generate first")
}

func TestEvaluate_CorruptGraph(t *testing.T) {
	f := generated(t)
	require.NoError(t, os.WriteFile(f.statePath(GraphFileName), []byte("BOG\x00junk"), 0o644))

	out, err := f.run(nil, "evaluate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [CORRUPT_STATE]")
}

func TestEvaluate_CorruptResultsRebuild(t *testing.T) {
	f := generated(t)
	require.NoError(t, os.WriteFile(f.statePath(ResultsFileName), []byte("not a graph"), 0o644))

	launcher := f.producingLauncher()
	_, err := f.run(launcher, "evaluate")
	require.NoError(t, err)
	assert.Len(t, launcher.Calls(), 2)
}

func TestEvaluate_MetricsFile(t *testing.T) {
	f := generated(t)
	path := filepath.Join(t.TempDir(), "opgraph.prom")

	_, err := f.run(f.producingLauncher(), "evaluate", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `opgraph_operations_total{result="succeeded"} 3`)
	assert.Contains(t, text, `opgraph_operation_duration_seconds_count{kind="writefile"} 1`)
	assert.Contains(t, text, `opgraph_operation_duration_seconds_count{kind="process"} 2`)
}

func TestEvaluate_HistoryDisabled(t *testing.T) {
	f := generated(t)
	f.writeConfig("\n[history]\nenabled = false\n")

	out, err := f.run(f.producingLauncher(), "--format", "json", "evaluate")
	require.NoError(t, err)
	assert.NotContains(t, out, "run_id")

	_, statErr := os.Stat(filepath.Join(f.state, HistoryFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEvaluate_HistoryPruned(t *testing.T) {
	f := generated(t)
	f.writeConfig("\n[history]\nkeep = 2\n")

	for range 3 {
		_, err := f.run(f.producingLauncher(), "evaluate", "--full")
		require.NoError(t, err)
	}

	runs := readHistory(t, f)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"run-4", "run-3"}, ids)
}

func TestEvaluate_NegativeWorkers(t *testing.T) {
	f := generated(t)

	out, err := f.run(nil, "evaluate", "--workers", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, strings.Contains(out, "invalid --workers"))
}

func TestEvaluate_FailureRevokesTouchedResults(t *testing.T) {
	f := generated(t)

	_, err := f.run(f.producingLauncher(), "evaluate")
	require.NoError(t, err)
	f.age("main.c", "config.h", "main.o", "app")
	require.NoError(t, os.WriteFile(f.workPath("main.c"), []byte("int main() { return 1; }\n"), 0o644))

	// The compiler truncates its output before failing.
	truncating := testutil.NewFakeLauncher().On("cc", "main.c", testutil.FakeResult{
		Run: func(context.Context) (int, error) {
			return 1, os.WriteFile(f.workPath("main.o"), nil, 0o644)
		},
	})
	_, err = f.run(truncating, "evaluate")
	require.Error(t, err)

	results, err := codec.LoadOperationGraph(f.statePath(ResultsFileName))
	require.NoError(t, err)
	for _, op := range results.Operations {
		assert.Equal(t, op.Title != "Compile", op.WasSuccessfulRun, "operation %q", op.Title)
	}

	launcher := f.producingLauncher()
	_, err = f.run(launcher, "evaluate")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.c", "main.o"}, launcher.Arguments())
}
