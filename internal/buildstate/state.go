// Package buildstate is the surface build-task extensions program against.
//
// A BuildState owns one graph generator and a pair of value tables: the
// active state carries inbound configuration for the current target, the
// shared state collects results a task contributes to downstream targets.
package buildstate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/graph"
	"github.com/roach88/opgraph/internal/ir"
)

// BuildState is not safe for concurrent use. Tasks run one at a time.
type BuildState struct {
	active    ir.Table
	shared    ir.Table
	generator *graph.Generator
	logger    *slog.Logger
}

// New creates a build state around generator. A nil active table starts
// empty.
func New(active ir.Table, generator *graph.Generator, logger *slog.Logger) *BuildState {
	if active == nil {
		active = ir.NewTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildState{
		active:    active,
		shared:    ir.NewTable(),
		generator: generator,
		logger:    logger,
	}
}

// ActiveState returns the inbound configuration table.
func (s *BuildState) ActiveState() ir.Table {
	return s.active
}

// SharedState returns the table of results contributed by tasks.
func (s *BuildState) SharedState() ir.Table {
	return s.shared
}

// CreateOperation declares an operation. Paths are parsed into normalized
// form; relative inputs and outputs resolve against workingDirectory.
func (s *BuildState) CreateOperation(
	title string,
	executable string,
	arguments string,
	workingDirectory string,
	declaredInput []string,
	declaredOutput []string,
) (ir.OperationID, error) {
	id, err := s.generator.CreateOperation(
		title,
		fspath.Parse(executable),
		arguments,
		fspath.Parse(workingDirectory),
		parseAll(declaredInput),
		parseAll(declaredOutput),
	)
	if err != nil {
		s.LogTrace(TraceError, fmt.Sprintf("create operation %q: %v", title, err))
		return 0, err
	}
	return id, nil
}

// CreateWriteFileOperation declares the in-process write of content to
// destination.
func (s *BuildState) CreateWriteFileOperation(workingDirectory, destination, content string) (ir.OperationID, error) {
	title := "WriteFile [" + destination + "]"
	arguments := fmt.Sprintf("%q %s", destination, content)
	return s.CreateOperation(title, ir.WriteFileExecutable, arguments, workingDirectory, nil, []string{destination})
}

// BuildGraph wires the declared operations into the final graph.
func (s *BuildState) BuildGraph() (*ir.OperationGraph, error) {
	return s.generator.BuildGraph()
}

func parseAll(ss []string) []fspath.Path {
	out := make([]fspath.Path, len(ss))
	for i, s := range ss {
		out[i] = fspath.Parse(s)
	}
	return out
}

// Task is a build-task extension.
type Task interface {
	Name() string
	Execute(ctx context.Context, state *BuildState) error
}

// RunTasks executes tasks in order and stops at the first failure.
func RunTasks(ctx context.Context, state *BuildState, tasks ...Task) error {
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		state.LogTrace(TraceDebug, "running task "+task.Name())
		if err := task.Execute(ctx, state); err != nil {
			return fmt.Errorf("task %s: %w", task.Name(), err)
		}
	}
	return nil
}
