package harness

import (
	"github.com/roach88/opgraph/internal/engine"
	"github.com/roach88/opgraph/internal/ir"
)

// StateNotRun marks an operation the scheduler never reached.
const StateNotRun = "not_run"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates that every expectation held.
	Pass bool `json:"pass"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Graph is the generated graph, nil when generation failed.
	Graph *ir.OperationGraph `json:"graph,omitempty"`

	// GenerationError is the error code generation failed with.
	GenerationError string `json:"generation_error,omitempty"`

	// Report is the execution report when the scenario executes the graph.
	Report *engine.Report `json:"-"`

	// ExecutionError is the execution error code, if any.
	ExecutionError string `json:"execution_error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// States returns the final state of every executed operation keyed by
// title. Operations of the graph that never ran map to StateNotRun.
func (r *Result) States() map[string]string {
	if r.Graph == nil || r.Report == nil {
		return nil
	}
	states := make(map[string]string, len(r.Graph.Operations))
	for _, op := range r.Graph.Operations {
		states[op.Title] = StateNotRun
	}
	for _, res := range r.Report.Results {
		states[res.Title] = res.State.String()
	}
	return states
}

// Order returns the titles of the report in completion order.
func (r *Result) Order() []string {
	if r.Report == nil {
		return nil
	}
	order := make([]string, len(r.Report.Results))
	for i, res := range r.Report.Results {
		order[i] = res.Title
	}
	return order
}
