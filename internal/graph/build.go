package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/opgraph/internal/ir"
)

// BuildGraph wires edges between the registered operations, determines the
// roots and applies transitive reduction.
//
// BuildGraph may be called more than once; each call rewires from the
// declarations. The returned graph is independent of the generator.
func (g *Generator) BuildGraph() (*ir.OperationGraph, error) {
	roots, err := g.wire()
	if err != nil {
		return nil, err
	}
	if err := g.reduce(roots); err != nil {
		return nil, err
	}

	result := ir.NewOperationGraph()
	for _, op := range g.operations {
		result.Operations[op.ID] = op.Clone()
	}
	result.RootOperationIDs = roots
	result.ReferencedFiles = g.files.Referenced()

	g.logger.Debug("graph built",
		"operations", len(g.operations),
		"roots", len(roots),
		"files", len(result.ReferencedFiles))

	return result, nil
}

// wire runs the index and edge passes and pins the roots. It returns the
// root ids in ascending order.
func (g *Generator) wire() ([]ir.OperationID, error) {
	for _, op := range g.operations {
		op.Children = []ir.OperationID{}
		op.DependencyCount = 0
	}

	fileProducers := make(map[ir.FileID]ir.OperationID)
	dirProducers := make(map[ir.FileID][]ir.OperationID)

	// Index pass
	for _, op := range g.operations {
		for _, out := range op.DeclaredOutput {
			p, ok := g.files.Path(out)
			if !ok {
				return nil, fmt.Errorf("operation %d: output file %d is not interned", op.ID, out)
			}
			if !p.HasFileName() {
				if !slices.Contains(dirProducers[out], op.ID) {
					dirProducers[out] = append(dirProducers[out], op.ID)
				}
				continue
			}
			if owner, claimed := fileProducers[out]; claimed && owner != op.ID {
				return nil, &GenerationError{
					Code:      ErrCodeDuplicateOutput,
					Message:   fmt.Sprintf("file output already declared by operation %d", owner),
					Path:      p.String(),
					Operation: op.ID,
				}
			}
			fileProducers[out] = op.ID
		}
	}

	// Edge pass
	for _, op := range g.operations {
		for _, in := range op.DeclaredInput {
			if producer, ok := fileProducers[in]; ok {
				g.addEdge(producer, op.ID)
			}
		}
		for _, out := range op.DeclaredOutput {
			p, _ := g.files.Path(out)
			for dir, ok := p.Parent(); ok; dir, ok = dir.Parent() {
				dirID, known := g.files.Lookup(dir)
				if !known {
					continue
				}
				for _, producer := range dirProducers[dirID] {
					g.addEdge(producer, op.ID)
				}
			}
		}
	}

	roots := []ir.OperationID{}
	for _, op := range g.operations {
		if op.DependencyCount == 0 {
			op.DependencyCount = 1
			roots = append(roots, op.ID)
		}
	}

	if len(roots) == 0 && len(g.operations) > 0 {
		return nil, newCycleError(findCycle(g.operations))
	}
	return roots, nil
}

// addEdge records child as a dependent of parent once.
func (g *Generator) addEdge(parent, child ir.OperationID) {
	if parent == child {
		return
	}
	p := g.operations[parent-1]
	if p.HasChild(child) {
		return
	}
	p.Children = append(p.Children, child)
	g.operations[child-1].DependencyCount++
}
