package manifest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/buildstate"
	"github.com/roach88/opgraph/internal/files"
	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/graph"
	"github.com/roach88/opgraph/internal/ir"
)

func newBuildState(t *testing.T, read, write []string) *buildstate.BuildState {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := graph.NewGenerator(files.NewTable(), paths(read), paths(write), logger)
	require.NoError(t, err)
	return buildstate.New(nil, g, logger)
}

func paths(ss []string) []fspath.Path {
	out := make([]fspath.Path, len(ss))
	for i, s := range ss {
		out[i] = fspath.Parse(s).EnsureDirectory()
	}
	return out
}

func TestTask_BuildsGraph(t *testing.T) {
	m, err := Load("testdata/basic", nil)
	require.NoError(t, err)

	state := newBuildState(t, append([]string{"C:/Work/"}, m.Access.Read...), []string{"C:/Work/"})
	require.NoError(t, buildstate.RunTasks(context.Background(), state, NewTask(m)))

	g, err := state.BuildGraph()
	require.NoError(t, err)
	require.NoError(t, graph.Validate(g))

	require.Len(t, g.Operations, 3)
	write := g.Operations[1]
	compile := g.Operations[2]
	link := g.Operations[3]

	assert.True(t, write.Command.IsWriteFile())
	assert.Equal(t, "WriteFile [gen/config.h]", write.Title)
	assert.Equal(t, "Compile main.c", compile.Title)
	assert.Equal(t, []ir.OperationID{1}, g.RootOperationIDs)
	assert.Equal(t, []ir.OperationID{2}, write.Children)
	assert.Equal(t, []ir.OperationID{3}, compile.Children)
	assert.Equal(t, uint32(1), link.DependencyCount)

	app, _ := state.SharedState().GetTable("artifacts")
	assert.Equal(t, ir.Table{"app": ir.String("C:/Work/bin/app.exe")}, app)
}

func TestTask_SandboxViolationNamesDeclaration(t *testing.T) {
	m, err := CompileString(`
		operation: escape: {
			executable:       "tool"
			workingDirectory: "/work/"
			outputs: ["/etc/passwd"]
		}
	`, "escape.cue", nil)
	require.NoError(t, err)

	state := newBuildState(t, []string{"/work/"}, []string{"/work/"})
	err = NewTask(m).Execute(context.Background(), state)
	require.Error(t, err)
	assert.True(t, graph.IsSandboxViolation(err))
	assert.Contains(t, err.Error(), "operation.escape")
}

func TestTask_Cancelled(t *testing.T) {
	m, err := CompileString(`operation: a: {executable: "t", workingDirectory: "/w/"}`, "a.cue", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewTask(m).Execute(ctx, newBuildState(t, []string{"/w/"}, []string{"/w/"}))
	assert.ErrorIs(t, err, context.Canceled)
}
