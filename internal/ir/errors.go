package ir

import "errors"

// ErrHandled marks a failure that has already been reported with enough
// context for the user. The top-level driver turns it into a clean non-zero
// exit without a raw error trace.
//
// Error types that represent fatal build conditions implement
// Is(target error) bool and return true for ErrHandled.
var ErrHandled = errors.New("handled build failure")

// IsHandled reports whether err (or anything it wraps) is a handled failure.
func IsHandled(err error) bool {
	return errors.Is(err, ErrHandled)
}
