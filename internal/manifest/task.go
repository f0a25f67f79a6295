package manifest

import (
	"context"
	"fmt"

	"github.com/roach88/opgraph/internal/buildstate"
)

// Task declares a manifest's operations through the build-state facade.
type Task struct {
	manifest *Manifest
}

// NewTask wraps a compiled manifest as a build task.
func NewTask(m *Manifest) *Task {
	return &Task{manifest: m}
}

// Name implements buildstate.Task.
func (t *Task) Name() string { return "manifest" }

// Execute implements buildstate.Task.
func (t *Task) Execute(ctx context.Context, state *buildstate.BuildState) error {
	for _, w := range t.manifest.WriteFiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := state.CreateWriteFileOperation(w.WorkingDirectory, w.Path, w.Content); err != nil {
			return fmt.Errorf("writeFile.%s: %w", w.Name, err)
		}
	}

	for _, op := range t.manifest.Operations {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := state.CreateOperation(op.Title, op.Executable, op.Arguments, op.WorkingDirectory, op.Inputs, op.Outputs)
		if err != nil {
			return fmt.Errorf("operation.%s: %w", op.Name, err)
		}
	}

	shared := state.SharedState()
	for key, value := range t.manifest.Shared {
		shared[key] = value
	}

	state.LogTrace(buildstate.TraceInformation, fmt.Sprintf("declared %d operations and %d file writes",
		len(t.manifest.Operations), len(t.manifest.WriteFiles)))
	return nil
}

var _ buildstate.Task = (*Task)(nil)
