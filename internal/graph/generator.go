package graph

import (
	"fmt"
	"log/slog"

	"github.com/roach88/opgraph/internal/files"
	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/ir"
)

// Generator accumulates operation declarations for one build.
//
// Operations live in an arena indexed by OperationID-1 so edge wiring is
// index based. A Generator is not safe for concurrent use.
type Generator struct {
	files       *files.Table
	readAccess  []fspath.Path
	writeAccess []fspath.Path
	readIDs     []ir.FileID
	writeIDs    []ir.FileID

	operations []*ir.OperationInfo
	commands   map[ir.CommandInfo]ir.OperationID
	logger     *slog.Logger
}

// NewGenerator creates a generator that interns paths into table and
// validates declarations against the given absolute directory prefixes.
func NewGenerator(table *files.Table, readAccess, writeAccess []fspath.Path, logger *slog.Logger) (*Generator, error) {
	if table == nil {
		table = files.NewTable()
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &Generator{
		files:    table,
		commands: make(map[ir.CommandInfo]ir.OperationID),
		logger:   logger,
	}

	var err error
	if g.readAccess, g.readIDs, err = g.internAccess("read", readAccess); err != nil {
		return nil, err
	}
	if g.writeAccess, g.writeIDs, err = g.internAccess("write", writeAccess); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Generator) internAccess(kind string, prefixes []fspath.Path) ([]fspath.Path, []ir.FileID, error) {
	dirs := make([]fspath.Path, 0, len(prefixes))
	ids := make([]ir.FileID, 0, len(prefixes))
	for _, p := range prefixes {
		if !p.IsAbsolute() {
			return nil, nil, fmt.Errorf("%s access prefix must be absolute: %s", kind, p)
		}
		dir := p.EnsureDirectory()
		dirs = append(dirs, dir)
		ids = append(ids, g.files.Intern(dir))
	}
	return dirs, ids, nil
}

// Files returns the interning table shared with the generator.
func (g *Generator) Files() *files.Table {
	return g.files
}

// OperationCount returns the number of registered operations.
func (g *Generator) OperationCount() int {
	return len(g.operations)
}

// Operation returns the registered operation with the given id.
func (g *Generator) Operation(id ir.OperationID) (*ir.OperationInfo, bool) {
	if id == 0 || int(id) > len(g.operations) {
		return nil, false
	}
	return g.operations[id-1], true
}

// CreateOperation registers a new operation.
//
// Relative inputs and outputs are resolved against workingDirectory. The
// call fails without side effects when the working directory is relative,
// when an equal command already exists, or when any declared path falls
// outside the read (inputs) or write (outputs) access lists.
func (g *Generator) CreateOperation(
	title string,
	executable fspath.Path,
	arguments string,
	workingDirectory fspath.Path,
	declaredInput []fspath.Path,
	declaredOutput []fspath.Path,
) (ir.OperationID, error) {
	if !workingDirectory.IsAbsolute() {
		return 0, &GenerationError{
			Code:    ErrCodeWorkingDirectoryNotAbsolute,
			Message: "working directory must be absolute",
			Path:    workingDirectory.String(),
		}
	}
	workingDirectory = workingDirectory.EnsureDirectory()

	command := ir.CommandInfo{
		WorkingDirectory: workingDirectory.String(),
		Executable:       executable.String(),
		Arguments:        arguments,
	}
	if existing, ok := g.commands[command]; ok {
		return 0, &GenerationError{
			Code:      ErrCodeDuplicateOperation,
			Message:   fmt.Sprintf("command already registered as operation %d: %s", existing, command),
			Operation: existing,
		}
	}

	inputs, err := resolveWithin(workingDirectory, declaredInput, g.readAccess, "input")
	if err != nil {
		return 0, err
	}
	outputs, err := resolveWithin(workingDirectory, declaredOutput, g.writeAccess, "output")
	if err != nil {
		return 0, err
	}

	id := ir.OperationID(len(g.operations) + 1)
	op := &ir.OperationInfo{
		ID:             id,
		Title:          title,
		Command:        command,
		DeclaredInput:  g.files.InternAll(inputs),
		DeclaredOutput: g.files.InternAll(outputs),
		ReadAccess:     append([]ir.FileID{}, g.readIDs...),
		WriteAccess:    append([]ir.FileID{}, g.writeIDs...),
		Children:       []ir.OperationID{},
		ObservedInput:  []ir.FileID{},
		ObservedOutput: []ir.FileID{},
	}
	g.operations = append(g.operations, op)
	g.commands[command] = id

	g.logger.Debug("operation created",
		"operation", id,
		"title", title,
		"command", command.String(),
		"inputs", len(inputs),
		"outputs", len(outputs))

	return id, nil
}

// resolveWithin resolves every path against wd and checks it lies under one
// of the allowed prefixes.
func resolveWithin(wd fspath.Path, paths, allowed []fspath.Path, kind string) ([]fspath.Path, error) {
	resolved := make([]fspath.Path, len(paths))
	for i, p := range paths {
		abs := fspath.Join(wd, p)
		if !isAllowed(abs, allowed) {
			return nil, &GenerationError{
				Code:    ErrCodeSandboxViolation,
				Message: fmt.Sprintf("declared %s is outside the %s access list", kind, accessKind(kind)),
				Path:    abs.String(),
			}
		}
		resolved[i] = abs
	}
	return resolved, nil
}

func accessKind(kind string) string {
	if kind == "input" {
		return "read"
	}
	return "write"
}

func isAllowed(p fspath.Path, allowed []fspath.Path) bool {
	for _, prefix := range allowed {
		if p.IsWithin(prefix) {
			return true
		}
	}
	return false
}
