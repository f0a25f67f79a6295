package engine

import (
	"context"
	"slices"
)

// runSequential is the single-threaded depth-first driver. An explicit
// stack replaces recursion; children are pushed in reverse so operations
// execute in the same order a recursive walk would produce.
func (s *Scheduler) runSequential(ctx context.Context, r *run) error {
	stack := slices.Clone(r.graph.RootOperationIDs)
	slices.Reverse(stack)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ready, err := r.arrive(id)
		if err != nil {
			return err
		}
		if !ready {
			continue
		}

		if err := s.execute(ctx, r, n); err != nil {
			return err
		}

		for i := len(n.op.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.op.Children[i])
		}
	}
	return nil
}
