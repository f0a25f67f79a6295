package ir

import (
	"fmt"
	"slices"
)

// FileID is a dense handle for an interned path. Stable for the life of
// one build's graph.
type FileID uint32

// OperationID identifies an operation. Assigned sequentially starting at 1.
type OperationID uint32

// WriteFileExecutable is the reserved executable name for the in-process
// write-file command. Its arguments are "<destination> <content>".
const WriteFileExecutable = "writefile.exe"

// CommandInfo is the identity of an operation. Two operations never share an
// equal CommandInfo. It is comparable and used directly as a map key.
type CommandInfo struct {
	WorkingDirectory string `json:"working_directory"`
	Executable       string `json:"executable"`
	Arguments        string `json:"arguments"`
}

// String renders the command for logs.
func (c CommandInfo) String() string {
	if c.Arguments == "" {
		return fmt.Sprintf("[%s] %s", c.WorkingDirectory, c.Executable)
	}
	return fmt.Sprintf("[%s] %s %s", c.WorkingDirectory, c.Executable, c.Arguments)
}

// IsWriteFile reports whether the command is the in-process write-file command.
func (c CommandInfo) IsWriteFile() bool {
	return c.Executable == WriteFileExecutable
}

// OperationInfo is one node of the operation graph.
type OperationInfo struct {
	ID             OperationID   `json:"id"`
	Title          string        `json:"title"`
	Command        CommandInfo   `json:"command"`
	DeclaredInput  []FileID      `json:"declared_input"`
	DeclaredOutput []FileID      `json:"declared_output"`
	ReadAccess     []FileID      `json:"read_access"`
	WriteAccess    []FileID      `json:"write_access"`
	Children       []OperationID `json:"children"`

	// DependencyCount is the number of distinct parents gating execution.
	// Roots are pinned to 1 so the scheduler can decrement uniformly.
	DependencyCount uint32 `json:"dependency_count"`

	// Execution results, carried across builds.
	WasSuccessfulRun bool     `json:"was_successful_run"`
	ObservedInput    []FileID `json:"observed_input"`
	ObservedOutput   []FileID `json:"observed_output"`
}

// HasChild reports whether id is a direct child of the operation.
func (o *OperationInfo) HasChild(id OperationID) bool {
	return slices.Contains(o.Children, id)
}

// Clone returns a deep copy of the operation.
func (o *OperationInfo) Clone() *OperationInfo {
	c := *o
	c.DeclaredInput = slices.Clone(o.DeclaredInput)
	c.DeclaredOutput = slices.Clone(o.DeclaredOutput)
	c.ReadAccess = slices.Clone(o.ReadAccess)
	c.WriteAccess = slices.Clone(o.WriteAccess)
	c.Children = slices.Clone(o.Children)
	c.ObservedInput = slices.Clone(o.ObservedInput)
	c.ObservedOutput = slices.Clone(o.ObservedOutput)
	return &c
}

// OperationGraph is the persisted result of graph generation.
type OperationGraph struct {
	Operations       map[OperationID]*OperationInfo `json:"operations"`
	RootOperationIDs []OperationID                  `json:"root_operation_ids"`
	ReferencedFiles  map[FileID]string              `json:"referenced_files"`
}

// NewOperationGraph returns an empty graph with initialized maps.
func NewOperationGraph() *OperationGraph {
	return &OperationGraph{
		Operations:       make(map[OperationID]*OperationInfo),
		RootOperationIDs: []OperationID{},
		ReferencedFiles:  make(map[FileID]string),
	}
}

// Operation returns the operation with the given id.
func (g *OperationGraph) Operation(id OperationID) (*OperationInfo, bool) {
	op, ok := g.Operations[id]
	return op, ok
}

// SortedOperationIDs returns operation ids in ascending order.
func (g *OperationGraph) SortedOperationIDs() []OperationID {
	ids := make([]OperationID, 0, len(g.Operations))
	for id := range g.Operations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SortedFileIDs returns referenced file ids in ascending order.
func (g *OperationGraph) SortedFileIDs() []FileID {
	ids := make([]FileID, 0, len(g.ReferencedFiles))
	for id := range g.ReferencedFiles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy of the graph.
func (g *OperationGraph) Clone() *OperationGraph {
	c := &OperationGraph{
		Operations:       make(map[OperationID]*OperationInfo, len(g.Operations)),
		RootOperationIDs: slices.Clone(g.RootOperationIDs),
		ReferencedFiles:  make(map[FileID]string, len(g.ReferencedFiles)),
	}
	if c.RootOperationIDs == nil {
		c.RootOperationIDs = []OperationID{}
	}
	for id, op := range g.Operations {
		c.Operations[id] = op.Clone()
	}
	for id, p := range g.ReferencedFiles {
		c.ReferencedFiles[id] = p
	}
	return c
}
