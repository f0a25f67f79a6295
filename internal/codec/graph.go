package codec

import (
	"fmt"

	"github.com/roach88/opgraph/internal/ir"
)

const (
	sectionFiles      = "FIS\x00"
	sectionRoots      = "ROP\x00"
	sectionOperations = "OPS\x00"
)

// EncodeOperationGraph serializes g. Files and operations are written in
// ascending id order so equal graphs encode identically.
func EncodeOperationGraph(g *ir.OperationGraph) []byte {
	var e encoder
	e.header(ir.OperationGraphMagic, ir.OperationGraphVersion)

	e.raw(sectionFiles)
	fileIDs := g.SortedFileIDs()
	e.uint32(uint32(len(fileIDs)))
	for _, id := range fileIDs {
		e.uint32(uint32(id))
		e.string(g.ReferencedFiles[id])
	}

	e.raw(sectionRoots)
	writeOperationIDs(&e, g.RootOperationIDs)

	e.raw(sectionOperations)
	opIDs := g.SortedOperationIDs()
	e.uint32(uint32(len(opIDs)))
	for _, id := range opIDs {
		writeOperation(&e, g.Operations[id])
	}
	return e.bytes()
}

func writeOperation(e *encoder, op *ir.OperationInfo) {
	e.uint32(uint32(op.ID))
	e.string(op.Title)
	e.string(op.Command.WorkingDirectory)
	e.string(op.Command.Executable)
	e.string(op.Command.Arguments)
	writeFileIDs(e, op.DeclaredInput)
	writeFileIDs(e, op.DeclaredOutput)
	writeFileIDs(e, op.ReadAccess)
	writeFileIDs(e, op.WriteAccess)
	writeOperationIDs(e, op.Children)
	e.uint32(op.DependencyCount)
	e.bool(op.WasSuccessfulRun)
	writeFileIDs(e, op.ObservedInput)
	writeFileIDs(e, op.ObservedOutput)
}

func writeFileIDs(e *encoder, ids []ir.FileID) {
	e.uint32(uint32(len(ids)))
	for _, id := range ids {
		e.uint32(uint32(id))
	}
}

func writeOperationIDs(e *encoder, ids []ir.OperationID) {
	e.uint32(uint32(len(ids)))
	for _, id := range ids {
		e.uint32(uint32(id))
	}
}

// DecodeOperationGraph parses a complete operation graph. It either returns
// a fully populated graph or an error; it never returns partial results.
func DecodeOperationGraph(data []byte) (*ir.OperationGraph, error) {
	d := newDecoder(data)
	if err := d.header(ir.OperationGraphMagic, ir.OperationGraphVersion); err != nil {
		return nil, err
	}

	g := ir.NewOperationGraph()

	if err := d.magic(sectionFiles, "file section"); err != nil {
		return nil, err
	}
	fileCount, err := d.count("file", 8)
	if err != nil {
		return nil, err
	}
	for range fileCount {
		id, err := d.uint32("file id")
		if err != nil {
			return nil, err
		}
		path, err := d.string("file path")
		if err != nil {
			return nil, err
		}
		if _, dup := g.ReferencedFiles[ir.FileID(id)]; dup {
			return nil, corruptf("duplicate file id %d", id)
		}
		g.ReferencedFiles[ir.FileID(id)] = path
	}

	if err := d.magic(sectionRoots, "root section"); err != nil {
		return nil, err
	}
	if g.RootOperationIDs, err = readOperationIDs(d, "root"); err != nil {
		return nil, err
	}

	if err := d.magic(sectionOperations, "operation section"); err != nil {
		return nil, err
	}
	opCount, err := d.count("operation", 4)
	if err != nil {
		return nil, err
	}
	for range opCount {
		op, err := readOperation(d)
		if err != nil {
			return nil, err
		}
		if _, dup := g.Operations[op.ID]; dup {
			return nil, corruptf("duplicate operation id %d", op.ID)
		}
		g.Operations[op.ID] = op
	}

	if err := d.end(); err != nil {
		return nil, err
	}
	return g, nil
}

func readOperation(d *decoder) (*ir.OperationInfo, error) {
	id, err := d.uint32("operation id")
	if err != nil {
		return nil, err
	}
	op := &ir.OperationInfo{ID: ir.OperationID(id)}
	what := func(field string) string {
		return fmt.Sprintf("operation %d %s", id, field)
	}

	if op.Title, err = d.string(what("title")); err != nil {
		return nil, err
	}
	if op.Command.WorkingDirectory, err = d.string(what("working directory")); err != nil {
		return nil, err
	}
	if op.Command.Executable, err = d.string(what("executable")); err != nil {
		return nil, err
	}
	if op.Command.Arguments, err = d.string(what("arguments")); err != nil {
		return nil, err
	}
	if op.DeclaredInput, err = readFileIDs(d, what("declared input")); err != nil {
		return nil, err
	}
	if op.DeclaredOutput, err = readFileIDs(d, what("declared output")); err != nil {
		return nil, err
	}
	if op.ReadAccess, err = readFileIDs(d, what("read access")); err != nil {
		return nil, err
	}
	if op.WriteAccess, err = readFileIDs(d, what("write access")); err != nil {
		return nil, err
	}
	if op.Children, err = readOperationIDs(d, what("children")); err != nil {
		return nil, err
	}
	if op.DependencyCount, err = d.uint32(what("dependency count")); err != nil {
		return nil, err
	}
	if op.WasSuccessfulRun, err = d.bool(what("success flag")); err != nil {
		return nil, err
	}
	if op.ObservedInput, err = readFileIDs(d, what("observed input")); err != nil {
		return nil, err
	}
	if op.ObservedOutput, err = readFileIDs(d, what("observed output")); err != nil {
		return nil, err
	}
	return op, nil
}

func readFileIDs(d *decoder, what string) ([]ir.FileID, error) {
	n, err := d.count(what, 4)
	if err != nil {
		return nil, err
	}
	ids := make([]ir.FileID, n)
	for i := range ids {
		v, err := d.uint32(what)
		if err != nil {
			return nil, err
		}
		ids[i] = ir.FileID(v)
	}
	return ids, nil
}

func readOperationIDs(d *decoder, what string) ([]ir.OperationID, error) {
	n, err := d.count(what, 4)
	if err != nil {
		return nil, err
	}
	ids := make([]ir.OperationID, n)
	for i := range ids {
		v, err := d.uint32(what)
		if err != nil {
			return nil, err
		}
		ids[i] = ir.OperationID(v)
	}
	return ids, nil
}
