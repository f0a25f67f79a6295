package buildstate

import (
	"context"
	"fmt"
	"log/slog"
)

// TraceLevel is the severity an extension attaches to a trace message.
type TraceLevel int

const (
	TraceError TraceLevel = iota
	TraceWarning
	TraceHighPriority
	TraceInformation
	TraceDebug
)

// LevelHighPriority sits between Info and Warn.
const LevelHighPriority = slog.Level(2)

// String returns the level name.
func (l TraceLevel) String() string {
	switch l {
	case TraceError:
		return "Error"
	case TraceWarning:
		return "Warning"
	case TraceHighPriority:
		return "HighPriority"
	case TraceInformation:
		return "Information"
	case TraceDebug:
		return "Debug"
	default:
		return fmt.Sprintf("TraceLevel(%d)", int(l))
	}
}

// SlogLevel maps the trace level onto slog.
func (l TraceLevel) SlogLevel() slog.Level {
	switch l {
	case TraceError:
		return slog.LevelError
	case TraceWarning:
		return slog.LevelWarn
	case TraceHighPriority:
		return LevelHighPriority
	case TraceDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// LogTrace writes message at level.
func (s *BuildState) LogTrace(level TraceLevel, message string) {
	s.logger.Log(context.Background(), level.SlogLevel(), message)
}
