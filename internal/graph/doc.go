// Package graph builds the operation dependency graph.
//
// A Generator accepts operation declarations, checks them against the
// sandbox allow-lists and, on BuildGraph, wires producer -> consumer edges,
// pins roots, and removes edges already implied by a longer path. The
// resulting ir.OperationGraph is what the codec persists and the engine
// schedules.
//
// Edges come from two rules:
//   - an operation consuming file F depends on the single operation that
//     declares F as an output
//   - an operation writing anything under directory D depends on every
//     operation declaring D as an output
//
// Roots carry DependencyCount 1 so the scheduler decrements every node
// uniformly.
package graph
