package harness

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/ir"
)

func TestRun_AllScenariosPass(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_GraphOnly(t *testing.T) {
	s := &Scenario{
		Name:        "graph_only",
		Description: "no execution",
		Access:      Access{Read: []string{"C:/W/"}, Write: []string{"C:/W/"}},
		Operations: []OperationStep{
			{Title: "A", Executable: "a.exe", WorkingDirectory: "C:/W/", Outputs: []string{"a"}},
			{Title: "B", Executable: "b.exe", WorkingDirectory: "C:/W/", Inputs: []string{"a"}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	require.NotNil(t, result.Graph)
	assert.Len(t, result.Graph.Operations, 2)
	assert.Nil(t, result.Report)
	assert.Nil(t, result.States())
	assert.Nil(t, result.Order())
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "every expectation is wrong",
		Access:      Access{Read: []string{"C:/W/"}, Write: []string{"C:/W/"}},
		Operations: []OperationStep{
			{Title: "A", Executable: "a.exe", WorkingDirectory: "C:/W/", Outputs: []string{"a"}},
			{Title: "B", Executable: "b.exe", WorkingDirectory: "C:/W/", Inputs: []string{"a"}},
		},
	}
	s.Expect = Expectations{
		Roots:            []ir.OperationID{2},
		Children:         map[ir.OperationID][]ir.OperationID{1: {}, 9: {}},
		DependencyCounts: map[ir.OperationID]uint32{2: 5},
	}
	s.Execute = &ExecuteStep{
		Order:  []string{"B", "A"},
		States: map[string]string{"A": "failed", "Z": "succeeded"},
		Error:  "PROCESS_FAILED",
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	out := strings.Join(result.Errors, "\n")
	assert.Contains(t, out, "roots: got [1], want [2]")
	assert.Contains(t, out, "children of 1: got [2], want []")
	assert.Contains(t, out, "children: operation 9 does not exist")
	assert.Contains(t, out, "dependency count of 2: got 1, want 5")
	assert.Contains(t, out, `execution error: got "", want "PROCESS_FAILED"`)
	assert.Contains(t, out, `state of "A": got succeeded, want failed`)
	assert.Contains(t, out, `state of "Z": no such operation`)
	assert.Contains(t, out, "order: got [A B], want [B A]")
}

func TestRun_UnexpectedGenerationError(t *testing.T) {
	s := &Scenario{
		Name:        "unexpected",
		Description: "relative working directory",
		Operations: []OperationStep{
			{Title: "A", Executable: "a.exe", WorkingDirectory: "rel/"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Nil(t, result.Graph)
	assert.Equal(t, "WORKING_DIRECTORY_NOT_ABSOLUTE", result.GenerationError)
	assert.Equal(t, []string{"unexpected generation error WORKING_DIRECTORY_NOT_ABSOLUTE"}, result.Errors)
}

func TestRun_WrongGenerationError(t *testing.T) {
	s := &Scenario{
		Name:        "wrong",
		Description: "expects a cycle but succeeds",
		Operations: []OperationStep{
			{Title: "A", Executable: "a.exe", WorkingDirectory: "C:/W/"},
		},
		Expect: Expectations{Error: "CYCLE_DETECTED"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{`generation error: got "", want "CYCLE_DETECTED"`}, result.Errors)
}

func TestRun_ExecutionLeavesGraphUntouched(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/reduction.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	for _, op := range result.Graph.Operations {
		assert.False(t, op.WasSuccessfulRun, "operation %d", op.ID)
	}
	assert.Equal(t, 3, result.Report.Executed())
}

func TestHarness_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := LoadScenario("testdata/scenarios/write_file.yaml")
	require.NoError(t, err)

	result, err := New(WithLogger(logger)).Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, buf.String(), "msg=\"operation created\"")
	assert.Contains(t, buf.String(), "msg=\"writing file\"")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	assert.Empty(t, r.Errors)

	r.AddError("first")
	r.AddError("second")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"first", "second"}, r.Errors)
}
