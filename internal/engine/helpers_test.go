package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/files"
	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/graph"
	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type decl struct {
	name    string
	inputs  []string
	outputs []string
}

func parse(ss []string) []fspath.Path {
	out := make([]fspath.Path, len(ss))
	for i, s := range ss {
		out[i] = fspath.Parse(s)
	}
	return out
}

// buildGraph declares one tool.exe operation per decl (arguments = name)
// under C:/Work/ and returns the built graph.
func buildGraph(t *testing.T, decls ...decl) *ir.OperationGraph {
	t.Helper()
	access := parse([]string{"C:/Work/"})
	g, err := graph.NewGenerator(files.NewTable(), access, access, discardLogger())
	require.NoError(t, err)
	for _, d := range decls {
		executable := "tool.exe"
		arguments := d.name
		if len(d.name) > 0 && d.name[0] == '>' {
			executable = ir.WriteFileExecutable
			arguments = d.name[1:]
		}
		_, err := g.CreateOperation(d.name, fspath.Parse(executable), arguments, fspath.Parse("C:/Work/"),
			parse(d.inputs), parse(d.outputs))
		require.NoError(t, err)
	}
	built, err := g.BuildGraph()
	require.NoError(t, err)
	require.NoError(t, graph.Validate(built))
	return built
}

func newTestScheduler(launcher Launcher, fs *testutil.MemFS, opts ...Option) *Scheduler {
	opts = append([]Option{WithFileSystem(fs)}, opts...)
	return NewScheduler(launcher, discardLogger(), opts...)
}

func states(report *Report) map[ir.OperationID]OperationState {
	out := make(map[ir.OperationID]OperationState)
	for _, r := range report.Results {
		out[r.ID] = r.State
	}
	return out
}
