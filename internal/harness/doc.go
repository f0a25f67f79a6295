// Package harness provides a conformance testing framework for graph
// generation and execution.
//
// A scenario is a YAML file that declares sandbox access lists and an
// ordered list of operations, then states what the generated graph must
// look like: its roots, each operation's children and dependency count, or
// the generation error code. An optional execute section runs the graph
// through the scheduler with a fake launcher and an in-memory file system,
// scripting exit codes per operation title and checking the resulting
// states.
//
// RunWithGolden additionally snapshots the rendered graph (graph.WriteText)
// and the execution outcome under testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
