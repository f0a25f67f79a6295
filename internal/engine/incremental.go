package engine

import (
	"time"

	"github.com/roach88/opgraph/internal/ir"
)

// upToDate reports whether n can be skipped:
//   - its previous run succeeded
//   - no parent executed in this run
//   - it observed at least one output and every observed output exists
//   - every observed input exists and is not newer than the oldest output
//
// Any file system error is treated as out of date.
func (s *Scheduler) upToDate(r *run, n *node) bool {
	op := n.op
	if !op.WasSuccessfulRun || len(op.ObservedOutput) == 0 {
		return false
	}
	for _, parent := range n.parents {
		if r.nodes[parent].executed.Load() {
			return false
		}
	}

	var oldestOutput time.Time
	for i, id := range op.ObservedOutput {
		mod, ok := s.modTime(r.graph, id)
		if !ok {
			return false
		}
		if i == 0 || mod.Before(oldestOutput) {
			oldestOutput = mod
		}
	}

	for _, id := range op.ObservedInput {
		mod, ok := s.modTime(r.graph, id)
		if !ok || mod.After(oldestOutput) {
			s.logger.Debug("input changed", "operation", op.ID, "file", r.graph.ReferencedFiles[id])
			return false
		}
	}
	return true
}

func (s *Scheduler) modTime(g *ir.OperationGraph, id ir.FileID) (time.Time, bool) {
	path, ok := g.ReferencedFiles[id]
	if !ok {
		return time.Time{}, false
	}
	mod, exists, err := s.fs.ModTime(path)
	if err != nil {
		s.logger.Warn("stat failed", "path", path, "error", err)
		return time.Time{}, false
	}
	return mod, exists
}
