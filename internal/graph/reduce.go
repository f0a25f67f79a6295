package graph

import "github.com/roach88/opgraph/internal/ir"

// idSet is a fixed-size bitset over operation ids.
type idSet []uint64

func newIDSet(n int) idSet {
	return make(idSet, (n+64)/64)
}

func (s idSet) add(id ir.OperationID) {
	s[id/64] |= 1 << (id % 64)
}

func (s idSet) has(id ir.OperationID) bool {
	return s[id/64]&(1<<(id%64)) != 0
}

func (s idSet) union(other idSet) {
	for i := range s {
		s[i] |= other[i]
	}
}

const (
	white uint8 = iota
	grey
	black
)

type frame struct {
	id   ir.OperationID
	next int
}

// descendants computes the full descendant set of every operation reachable
// from roots. It walks post-order with an explicit stack and reports a cycle
// when an operation on the current path is reached again.
func descendants(ops []*ir.OperationInfo, roots []ir.OperationID) ([]idSet, error) {
	n := len(ops)
	desc := make([]idSet, n+1)
	state := make([]uint8, n+1)

	for _, root := range roots {
		if state[root] != white {
			continue
		}
		state[root] = grey
		stack := []frame{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			op := ops[top.id-1]

			if top.next < len(op.Children) {
				child := op.Children[top.next]
				top.next++
				switch state[child] {
				case grey:
					return nil, newCycleError(cycleFromStack(stack, child))
				case white:
					state[child] = grey
					stack = append(stack, frame{id: child})
				}
				continue
			}

			set := newIDSet(n)
			for _, child := range op.Children {
				set.add(child)
				set.union(desc[child])
			}
			desc[top.id] = set
			state[top.id] = black
			stack = stack[:len(stack)-1]
		}
	}

	for _, op := range ops {
		if state[op.ID] == white {
			// Unreachable from every root: only possible inside a cycle.
			return nil, newCycleError(findCycle(ops))
		}
	}
	return desc, nil
}

func cycleFromStack(stack []frame, repeated ir.OperationID) []ir.OperationID {
	start := 0
	for i, f := range stack {
		if f.id == repeated {
			start = i
			break
		}
	}
	cycle := make([]ir.OperationID, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		cycle = append(cycle, f.id)
	}
	return append(cycle, repeated)
}

// reduce removes every direct edge parent -> C where C is also reachable
// through a sibling child. Reachability and firing order are unchanged.
func (g *Generator) reduce(roots []ir.OperationID) error {
	desc, err := descendants(g.operations, roots)
	if err != nil {
		return err
	}

	removed := 0
	for _, op := range g.operations {
		if len(op.Children) < 2 {
			continue
		}
		kept := make([]ir.OperationID, 0, len(op.Children))
		for _, child := range op.Children {
			if impliedBySibling(op.Children, child, desc) {
				g.operations[child-1].DependencyCount--
				removed++
				continue
			}
			kept = append(kept, child)
		}
		op.Children = kept
	}

	if removed > 0 {
		g.logger.Debug("transitive reduction", "edges_removed", removed)
	}
	return nil
}

func impliedBySibling(children []ir.OperationID, child ir.OperationID, desc []idSet) bool {
	for _, sibling := range children {
		if sibling != child && desc[sibling].has(child) {
			return true
		}
	}
	return false
}
