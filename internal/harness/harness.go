package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/opgraph/internal/buildstate"
	"github.com/roach88/opgraph/internal/engine"
	"github.com/roach88/opgraph/internal/files"
	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/graph"
	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/testutil"
)

// Harness runs scenarios with fakes for every external effect.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes generator and scheduler logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a harness. Logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Create a generator with the scenario's access lists
//  2. Declare every operation through the build-state facade
//  3. Build the graph and check graph expectations
//  4. If requested, execute the graph and check execution expectations
//
// The returned error reports harness failures only; a generation or
// execution error the scenario does not expect is recorded in the result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	generator, err := graph.NewGenerator(files.NewTable(),
		directories(scenario.Access.Read), directories(scenario.Access.Write), h.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	state := buildstate.New(nil, generator, h.logger)

	built, genErr := h.generate(state, scenario.Operations)
	if genErr != nil {
		code, ok := generationCode(genErr)
		if !ok {
			return nil, genErr
		}
		result.GenerationError = code
	} else {
		result.Graph = built
	}

	checkGraph(result, scenario.Expect)
	if scenario.Execute == nil || result.Graph == nil {
		return result, nil
	}

	if err := h.execute(ctx, result, scenario.Execute); err != nil {
		return nil, err
	}
	checkExecution(result, scenario.Execute)
	return result, nil
}

func (h *Harness) generate(state *buildstate.BuildState, steps []OperationStep) (*ir.OperationGraph, error) {
	for _, step := range steps {
		var err error
		if step.WriteFile != nil {
			_, err = state.CreateWriteFileOperation(step.WorkingDirectory, step.WriteFile.Path, step.WriteFile.Content)
		} else {
			_, err = state.CreateOperation(step.Title, step.Executable, step.Arguments,
				step.WorkingDirectory, step.Inputs, step.Outputs)
		}
		if err != nil {
			return nil, err
		}
	}
	return state.BuildGraph()
}

func (h *Harness) execute(ctx context.Context, result *Result, step *ExecuteStep) error {
	launcher := testutil.NewFakeLauncher()
	for _, op := range result.Graph.Operations {
		if code, ok := step.Fail[op.Title]; ok {
			launcher.On(op.Command.Executable, op.Command.Arguments, testutil.FakeResult{ExitCode: code})
		}
	}

	scheduler := engine.NewScheduler(launcher, h.logger,
		engine.WithFileSystem(testutil.NewMemFS()),
		engine.WithWorkers(step.Workers))

	// Execution records results on the graph; the snapshot shows it as built.
	report, err := scheduler.Run(ctx, result.Graph.Clone())
	result.Report = report
	if err != nil {
		var ee *engine.ExecutionError
		if !errors.As(err, &ee) {
			return fmt.Errorf("execution failed: %w", err)
		}
		result.ExecutionError = string(ee.Code)
	}
	return nil
}

func generationCode(err error) (string, bool) {
	var ge *graph.GenerationError
	if errors.As(err, &ge) {
		return string(ge.Code), true
	}
	return "", false
}

func directories(ss []string) []fspath.Path {
	out := make([]fspath.Path, len(ss))
	for i, s := range ss {
		out[i] = fspath.Parse(s).EnsureDirectory()
	}
	return out
}
