package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/ir"
)

// ParseWriteFileArguments splits write-file arguments into destination
// and content. The destination is the first word or a Go-quoted string;
// the content is the literal remainder after one separating space.
func ParseWriteFileArguments(arguments string) (string, string, error) {
	if strings.HasPrefix(arguments, `"`) {
		quoted, err := strconv.QuotedPrefix(arguments)
		if err != nil {
			return "", "", fmt.Errorf("invalid quoted destination in %q: %w", arguments, err)
		}
		destination, err := strconv.Unquote(quoted)
		if err != nil {
			return "", "", fmt.Errorf("invalid quoted destination in %q: %w", arguments, err)
		}
		rest := arguments[len(quoted):]
		if rest != "" && rest[0] != ' ' {
			return "", "", fmt.Errorf("missing space after destination in %q", arguments)
		}
		return destination, strings.TrimPrefix(rest, " "), nil
	}

	destination, content, _ := strings.Cut(arguments, " ")
	if destination == "" {
		return "", "", fmt.Errorf("missing destination in %q", arguments)
	}
	return destination, content, nil
}

// writeFile executes the in-process write-file command for op. The
// destination must be one of op's declared outputs, which the generator
// has already checked against the write sandbox.
func (s *Scheduler) writeFile(g *ir.OperationGraph, op *ir.OperationInfo) error {
	destination, content, err := ParseWriteFileArguments(op.Command.Arguments)
	if err != nil {
		return newExecutionError(ErrCodeWriteFailed, op, "invalid arguments", err)
	}

	path := fspath.Join(fspath.Parse(op.Command.WorkingDirectory), fspath.Parse(destination))
	if !path.HasFileName() {
		return newExecutionError(ErrCodeWriteFailed, op, "destination is a directory: "+path.String(), nil)
	}

	if !declaresOutput(g, op, path) {
		return newExecutionError(ErrCodeWriteFailed, op, "destination is not a declared output: "+path.String(), nil)
	}

	s.logger.Debug("writing file", "operation", op.ID, "path", path.String(), "bytes", len(content))
	if err := s.fs.WriteFile(path.String(), []byte(content)); err != nil {
		return newExecutionError(ErrCodeWriteFailed, op, "write "+path.String(), err)
	}
	return nil
}

func declaresOutput(g *ir.OperationGraph, op *ir.OperationInfo, path fspath.Path) bool {
	for _, id := range op.DeclaredOutput {
		if declared, ok := g.ReferencedFiles[id]; ok && fspath.Parse(declared).String() == path.String() {
			return true
		}
	}
	return false
}
