// Package engine executes an operation graph.
//
// The scheduler loads nothing itself: callers decode and validate a graph,
// merge prior results, then call Scheduler.Run, which mutates the graph in
// place with the new results.
//
// DEPENDENCY COUNTING:
//
// Every operation carries DependencyCount, the number of parents that must
// finish first (roots are pinned to 1). A run copies each count into an
// atomic remaining counter. Each arrival from a parent, or from the run
// itself for a root, decrements it; the arrival that reaches exactly zero
// executes the operation and then arrives at its children. A counter below
// zero is a DEPENDENCY_UNDERFLOW error.
//
// DRIVERS:
//
// One worker walks the graph depth-first on an explicit stack. More workers
// pull ready operations from a channel; process waits happen on worker
// goroutines and output is drained concurrently with the child process.
//
// COMMANDS:
//
// The reserved executable ir.WriteFileExecutable writes its literal
// argument payload in-process. Everything else goes through a Launcher.
//
// INCREMENTAL:
//
// With WithIncremental, an operation whose last run succeeded, whose parents
// did not run, and whose observed outputs are newer than its observed inputs
// is skipped as up to date.
package engine
