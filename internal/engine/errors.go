package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/opgraph/internal/ir"
)

// ExecutionError represents a failure while running the operation graph.
//
// Execution errors include:
//   - Process failure: a command exited with a non-zero code
//   - Launch failure: a command could not be started
//   - Write failure: the in-process write-file command failed
//   - Dependency underflow: an operation was reached more often than it has parents
//   - Cancellation: the caller cancelled the run
//
// Every ExecutionError is handled: errors.Is(err, ir.ErrHandled) is true.
type ExecutionError struct {
	// Code identifies the error category.
	Code ExecutionErrorCode

	// Message is a human-readable description.
	Message string

	// Operation identifies the failing operation.
	Operation ir.OperationID

	// Title is the failing operation's title.
	Title string

	// ExitCode is the process exit code for PROCESS_FAILED.
	ExitCode int

	// Err is the underlying cause, if any.
	Err error
}

// ExecutionErrorCode categorizes execution errors.
type ExecutionErrorCode string

const (
	// ErrCodeProcessFailed indicates a non-zero process exit.
	ErrCodeProcessFailed ExecutionErrorCode = "PROCESS_FAILED"

	// ErrCodeLaunchFailed indicates the process could not be started.
	ErrCodeLaunchFailed ExecutionErrorCode = "LAUNCH_FAILED"

	// ErrCodeWriteFailed indicates the write-file command failed.
	ErrCodeWriteFailed ExecutionErrorCode = "WRITE_FAILED"

	// ErrCodeDependencyUnderflow indicates a remaining-dependency counter went negative.
	ErrCodeDependencyUnderflow ExecutionErrorCode = "DEPENDENCY_UNDERFLOW"

	// ErrCodeCancelled indicates the run was cancelled by the caller.
	ErrCodeCancelled ExecutionErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := string(e.Code)
	if e.Operation != 0 {
		msg += fmt.Sprintf(": operation %d", e.Operation)
	}
	if e.Title != "" {
		msg += fmt.Sprintf(" %q", e.Title)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports every execution error as handled.
func (e *ExecutionError) Is(target error) bool {
	return target == ir.ErrHandled
}

// IsProcessFailure returns true if a command exited with a non-zero code.
// Uses errors.As to handle wrapped errors.
func IsProcessFailure(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeProcessFailed
	}
	return false
}

// IsCancelled returns true if the run was cancelled.
func IsCancelled(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeCancelled
	}
	return false
}

// ExitCode returns the process exit code carried by err, or 0.
func ExitCode(err error) int {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.ExitCode
	}
	return 0
}

func newExecutionError(code ExecutionErrorCode, op *ir.OperationInfo, message string, cause error) *ExecutionError {
	return &ExecutionError{
		Code:      code,
		Message:   message,
		Operation: op.ID,
		Title:     op.Title,
		Err:       cause,
	}
}

// NewProcessError creates an ExecutionError for a non-zero exit.
func NewProcessError(op *ir.OperationInfo, exitCode int) *ExecutionError {
	e := newExecutionError(ErrCodeProcessFailed, op, fmt.Sprintf("exited with code %d", exitCode), nil)
	e.ExitCode = exitCode
	return e
}

// NewUnderflowError creates an ExecutionError for a negative dependency counter.
func NewUnderflowError(op *ir.OperationInfo) *ExecutionError {
	return newExecutionError(ErrCodeDependencyUnderflow, op,
		fmt.Sprintf("reached more often than its dependency count %d", op.DependencyCount), nil)
}
