package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/opgraph/internal/ir"
)

// GenerationError is a fatal error raised while declaring or wiring
// operations. No graph is produced once one is returned.
type GenerationError struct {
	// Code identifies the error category.
	Code GenerationErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the offending path for sandbox and output errors.
	Path string

	// Operation is the offending operation, when known.
	Operation ir.OperationID

	// Cycle lists the operations forming a cycle, first id repeated at the end.
	Cycle []ir.OperationID
}

// GenerationErrorCode categorizes generation errors.
type GenerationErrorCode string

const (
	// ErrCodeWorkingDirectoryNotAbsolute indicates a relative working directory.
	ErrCodeWorkingDirectoryNotAbsolute GenerationErrorCode = "WORKING_DIRECTORY_NOT_ABSOLUTE"

	// ErrCodeDuplicateOperation indicates an equal command is already registered.
	ErrCodeDuplicateOperation GenerationErrorCode = "DUPLICATE_OPERATION"

	// ErrCodeDuplicateOutput indicates two operations declare the same file output.
	ErrCodeDuplicateOutput GenerationErrorCode = "DUPLICATE_OUTPUT"

	// ErrCodeSandboxViolation indicates a declared path outside the access lists.
	ErrCodeSandboxViolation GenerationErrorCode = "SANDBOX_VIOLATION"

	// ErrCodeCycleDetected indicates an operation is reachable from itself.
	ErrCodeCycleDetected GenerationErrorCode = "CYCLE_DETECTED"

	// ErrCodeInvalidGraph indicates a loaded graph breaks a structural invariant.
	ErrCodeInvalidGraph GenerationErrorCode = "INVALID_GRAPH"
)

// Error implements the error interface.
func (e *GenerationError) Error() string {
	switch {
	case len(e.Cycle) > 0:
		ids := make([]string, len(e.Cycle))
		for i, id := range e.Cycle {
			ids[i] = fmt.Sprintf("%d", id)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(ids, " -> "))
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Path)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Is reports every generation error as handled.
func (e *GenerationError) Is(target error) bool {
	return target == ir.ErrHandled
}

func hasCode(err error, codes ...GenerationErrorCode) bool {
	var ge *GenerationError
	if !errors.As(err, &ge) {
		return false
	}
	for _, code := range codes {
		if ge.Code == code {
			return true
		}
	}
	return false
}

// IsConfigurationError returns true for relative working directories,
// duplicate commands and duplicate file outputs.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeWorkingDirectoryNotAbsolute, ErrCodeDuplicateOperation, ErrCodeDuplicateOutput)
}

// IsSandboxViolation returns true if a declared path fell outside the access lists.
func IsSandboxViolation(err error) bool {
	return hasCode(err, ErrCodeSandboxViolation)
}

// IsCycleError returns true if the error reports a dependency cycle.
func IsCycleError(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsInvalidGraph returns true if a loaded graph failed validation.
func IsInvalidGraph(err error) bool {
	return hasCode(err, ErrCodeInvalidGraph, ErrCodeCycleDetected)
}

func newInvalidGraphError(format string, args ...any) *GenerationError {
	return &GenerationError{
		Code:    ErrCodeInvalidGraph,
		Message: fmt.Sprintf(format, args...),
	}
}

func newCycleError(cycle []ir.OperationID) *GenerationError {
	return &GenerationError{
		Code:    ErrCodeCycleDetected,
		Message: "operation depends on itself",
		Cycle:   cycle,
	}
}
