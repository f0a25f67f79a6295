package graph

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/files"
	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/ir"
)

const workDir = "C:/Work/"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paths(ss ...string) []fspath.Path {
	out := make([]fspath.Path, len(ss))
	for i, s := range ss {
		out[i] = fspath.Parse(s)
	}
	return out
}

// newTestGenerator returns a generator that may read and write under C:/Work/.
func newTestGenerator(t testing.TB) *Generator {
	t.Helper()
	g, err := NewGenerator(files.NewTable(), paths(workDir), paths(workDir), discardLogger())
	require.NoError(t, err)
	return g
}

func mustCreate(t testing.TB, g *Generator, title string, inputs, outputs []string) ir.OperationID {
	t.Helper()
	id, err := g.CreateOperation(title, fspath.Parse("tool.exe"), title, fspath.Parse(workDir),
		paths(inputs...), paths(outputs...))
	require.NoError(t, err)
	return id
}

// reachable returns every id reachable from start through Children.
func reachable(ops map[ir.OperationID]*ir.OperationInfo, start ir.OperationID) map[ir.OperationID]bool {
	seen := map[ir.OperationID]bool{}
	stack := []ir.OperationID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range ops[id].Children {
			if !seen[child] {
				seen[child] = true
				stack = append(stack, child)
			}
		}
	}
	return seen
}
