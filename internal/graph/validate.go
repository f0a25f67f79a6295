package graph

import (
	"slices"

	"github.com/roach88/opgraph/internal/ir"
)

// Validate checks the structural invariants of a loaded graph before it is
// scheduled:
//   - operation keys match their ids and every referenced id exists
//   - every FileID used by an operation is in ReferencedFiles
//   - roots have no parents and DependencyCount 1
//   - every other operation's DependencyCount equals its parent count
//   - no operation is reachable from itself
func Validate(g *ir.OperationGraph) error {
	parents := make(map[ir.OperationID]uint32, len(g.Operations))

	for _, id := range g.SortedOperationIDs() {
		op := g.Operations[id]
		if op == nil || op.ID != id {
			return newInvalidGraphError("operation key %d does not match its record", id)
		}
		for _, list := range [][]ir.FileID{
			op.DeclaredInput, op.DeclaredOutput,
			op.ReadAccess, op.WriteAccess,
			op.ObservedInput, op.ObservedOutput,
		} {
			for _, file := range list {
				if _, ok := g.ReferencedFiles[file]; !ok {
					return newInvalidGraphError("operation %d references unknown file %d", id, file)
				}
			}
		}
		for _, child := range op.Children {
			if _, ok := g.Operations[child]; !ok {
				return newInvalidGraphError("operation %d has unknown child %d", id, child)
			}
			parents[child]++
		}
	}

	isRoot := make(map[ir.OperationID]bool, len(g.RootOperationIDs))
	for _, root := range g.RootOperationIDs {
		op, ok := g.Operations[root]
		if !ok {
			return newInvalidGraphError("unknown root operation %d", root)
		}
		if isRoot[root] {
			return newInvalidGraphError("root operation %d listed twice", root)
		}
		isRoot[root] = true
		if parents[root] != 0 {
			return newInvalidGraphError("root operation %d has %d parents", root, parents[root])
		}
		if op.DependencyCount != 1 {
			return newInvalidGraphError("root operation %d has dependency count %d", root, op.DependencyCount)
		}
	}

	for id, op := range g.Operations {
		if isRoot[id] {
			continue
		}
		if parents[id] == 0 {
			return newInvalidGraphError("operation %d is unreachable", id)
		}
		if op.DependencyCount != parents[id] {
			return newInvalidGraphError("operation %d has dependency count %d but %d parents",
				id, op.DependencyCount, parents[id])
		}
	}

	ops := make([]*ir.OperationInfo, 0, len(g.Operations))
	for _, id := range g.SortedOperationIDs() {
		ops = append(ops, g.Operations[id])
	}
	if cycle := findCycle(ops); cycle != nil {
		return newCycleError(cycle)
	}
	return nil
}

// findCycle returns one cycle path (first id repeated at the end), or nil
// when the operations are acyclic.
func findCycle(ops []*ir.OperationInfo) []ir.OperationID {
	adjacency := make(map[ir.OperationID][]ir.OperationID, len(ops))
	order := make([]ir.OperationID, 0, len(ops))
	for _, op := range ops {
		adjacency[op.ID] = op.Children
		order = append(order, op.ID)
	}
	slices.Sort(order)

	for _, scc := range tarjanSCC(adjacency, order) {
		if len(scc) > 1 || slices.Contains(adjacency[scc[0]], scc[0]) {
			return reconstructCyclePath(scc, adjacency)
		}
	}
	return nil
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node components without self-loops are not cycles. The walk uses an
// explicit frame stack rather than recursion.
func tarjanSCC(adjacency map[ir.OperationID][]ir.OperationID, order []ir.OperationID) [][]ir.OperationID {
	type frame struct {
		node ir.OperationID
		next int
	}

	var (
		index   = 0
		stack   []ir.OperationID
		frames  []frame
		indices = make(map[ir.OperationID]int)
		lowlink = make(map[ir.OperationID]int)
		onStack = make(map[ir.OperationID]bool)
		sccs    [][]ir.OperationID
	)

	visit := func(v ir.OperationID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true
		frames = append(frames, frame{node: v})
	}

	for _, root := range order {
		if _, visited := indices[root]; visited {
			continue
		}
		visit(root)

		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			v := top.node
			children := adjacency[v]

			if top.next < len(children) {
				w := children[top.next]
				top.next++
				if _, visited := indices[w]; !visited {
					visit(w)
				} else if onStack[w] {
					lowlink[v] = min(lowlink[v], indices[w])
				}
				continue
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				lowlink[parent] = min(lowlink[parent], lowlink[v])
			}

			if lowlink[v] == indices[v] {
				var scc []ir.OperationID
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				sccs = append(sccs, scc)
			}
		}
	}
	return sccs
}

// reconstructCyclePath follows edges inside an SCC from its smallest id
// until the start is reached again.
func reconstructCyclePath(scc []ir.OperationID, adjacency map[ir.OperationID][]ir.OperationID) []ir.OperationID {
	members := make(map[ir.OperationID]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}

	start := slices.Min(scc)
	current := start
	path := []ir.OperationID{current}
	visited := make(map[ir.OperationID]bool)

	for {
		visited[current] = true

		var next ir.OperationID
		for _, neighbor := range adjacency[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == 0 {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
