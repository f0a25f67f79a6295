package graph

import (
	"fmt"

	"github.com/roach88/opgraph/internal/files"
	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/ir"
)

// MergeResults copies execution results from previous into current for
// every operation whose command is unchanged. Observed paths are re-interned
// into current.ReferencedFiles. It returns the number of operations merged.
//
// On error current is left unmodified.
func MergeResults(current, previous *ir.OperationGraph) (int, error) {
	if previous == nil {
		return 0, nil
	}

	table, err := files.FromReferenced(current.ReferencedFiles)
	if err != nil {
		return 0, fmt.Errorf("current graph: %w", err)
	}

	byCommand := make(map[ir.CommandInfo]*ir.OperationInfo, len(previous.Operations))
	for _, op := range previous.Operations {
		byCommand[op.Command] = op
	}

	type merged struct {
		op      *ir.OperationInfo
		success bool
		input   []ir.FileID
		output  []ir.FileID
	}
	var updates []merged

	reintern := func(ids []ir.FileID) ([]ir.FileID, error) {
		out := make([]ir.FileID, 0, len(ids))
		for _, id := range ids {
			path, ok := previous.ReferencedFiles[id]
			if !ok {
				return nil, fmt.Errorf("previous graph references unknown file %d", id)
			}
			out = append(out, table.Intern(fspath.Parse(path)))
		}
		return out, nil
	}

	for _, id := range current.SortedOperationIDs() {
		op := current.Operations[id]
		prev, ok := byCommand[op.Command]
		if !ok {
			continue
		}
		input, err := reintern(prev.ObservedInput)
		if err != nil {
			return 0, err
		}
		output, err := reintern(prev.ObservedOutput)
		if err != nil {
			return 0, err
		}
		updates = append(updates, merged{op: op, success: prev.WasSuccessfulRun, input: input, output: output})
	}

	for _, u := range updates {
		u.op.WasSuccessfulRun = u.success
		u.op.ObservedInput = u.input
		u.op.ObservedOutput = u.output
	}
	current.ReferencedFiles = table.Referenced()
	return len(updates), nil
}

// RevokeResults marks the results in previous as unsuccessful for every
// operation of current listed in ids, matched by command. Use it after a
// failed run: those operations may have rewritten their outputs, so their
// earlier success no longer describes the files on disk. It returns the
// number of operations revoked.
func RevokeResults(previous, current *ir.OperationGraph, ids []ir.OperationID) int {
	if previous == nil {
		return 0
	}
	byCommand := make(map[ir.CommandInfo]*ir.OperationInfo, len(previous.Operations))
	for _, op := range previous.Operations {
		byCommand[op.Command] = op
	}

	revoked := 0
	for _, id := range ids {
		op, ok := current.Operations[id]
		if !ok {
			continue
		}
		prev, ok := byCommand[op.Command]
		if !ok || !prev.WasSuccessfulRun {
			continue
		}
		prev.WasSuccessfulRun = false
		revoked++
	}
	return revoked
}
