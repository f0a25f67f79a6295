package harness

import (
	"fmt"
	"maps"
	"slices"
)

// checkGraph evaluates the graph expectations against result.
func checkGraph(result *Result, expect Expectations) {
	if expect.Error != "" {
		if result.GenerationError != expect.Error {
			result.AddError(fmt.Sprintf("generation error: got %q, want %q", result.GenerationError, expect.Error))
		}
		return
	}
	if result.GenerationError != "" {
		result.AddError(fmt.Sprintf("unexpected generation error %s", result.GenerationError))
		return
	}

	g := result.Graph
	if expect.Roots != nil && !slices.Equal(g.RootOperationIDs, expect.Roots) {
		result.AddError(fmt.Sprintf("roots: got %v, want %v", g.RootOperationIDs, expect.Roots))
	}

	for _, id := range slices.Sorted(maps.Keys(expect.Children)) {
		op, ok := g.Operation(id)
		if !ok {
			result.AddError(fmt.Sprintf("children: operation %d does not exist", id))
			continue
		}
		if !slices.Equal(op.Children, expect.Children[id]) {
			result.AddError(fmt.Sprintf("children of %d: got %v, want %v", id, op.Children, expect.Children[id]))
		}
	}

	for _, id := range slices.Sorted(maps.Keys(expect.DependencyCounts)) {
		op, ok := g.Operation(id)
		if !ok {
			result.AddError(fmt.Sprintf("dependency_counts: operation %d does not exist", id))
			continue
		}
		if op.DependencyCount != expect.DependencyCounts[id] {
			result.AddError(fmt.Sprintf("dependency count of %d: got %d, want %d",
				id, op.DependencyCount, expect.DependencyCounts[id]))
		}
	}
}

// checkExecution evaluates the execute expectations against result.
func checkExecution(result *Result, step *ExecuteStep) {
	if result.ExecutionError != step.Error {
		result.AddError(fmt.Sprintf("execution error: got %q, want %q", result.ExecutionError, step.Error))
	}

	states := result.States()
	for _, title := range slices.Sorted(maps.Keys(step.States)) {
		got, ok := states[title]
		if !ok {
			result.AddError(fmt.Sprintf("state of %q: no such operation", title))
			continue
		}
		if got != step.States[title] {
			result.AddError(fmt.Sprintf("state of %q: got %s, want %s", title, got, step.States[title]))
		}
	}

	if step.Order != nil {
		if order := result.Order(); !slices.Equal(order, step.Order) {
			result.AddError(fmt.Sprintf("order: got %v, want %v", order, step.Order))
		}
	}
}
