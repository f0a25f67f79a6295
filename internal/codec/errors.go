package codec

import (
	"errors"
	"fmt"

	"github.com/roach88/opgraph/internal/ir"
)

// CorruptStateError reports a persisted file that cannot be decoded: bad
// magic, unsupported version, truncation or trailing bytes.
type CorruptStateError struct {
	// Path is the file that failed to load, empty for in-memory decoding.
	Path string

	// Reason describes the first framing problem found.
	Reason string
}

// Error implements the error interface.
func (e *CorruptStateError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("corrupt or incompatible state: %s", e.Reason)
	}
	return fmt.Sprintf("corrupt or incompatible state %s: %s", e.Path, e.Reason)
}

// Is reports corrupt state as handled so a driver that cannot fall back to
// a clean rebuild still exits cleanly.
func (e *CorruptStateError) Is(target error) bool {
	return target == ir.ErrHandled
}

// IsCorruptState returns true if err is or wraps a *CorruptStateError.
func IsCorruptState(err error) bool {
	var ce *CorruptStateError
	return errors.As(err, &ce)
}

func corruptf(format string, args ...any) *CorruptStateError {
	return &CorruptStateError{Reason: fmt.Sprintf(format, args...)}
}

// withPath attaches path to a corrupt-state error.
func withPath(err error, path string) error {
	var ce *CorruptStateError
	if errors.As(err, &ce) {
		return &CorruptStateError{Path: path, Reason: ce.Reason}
	}
	return err
}
