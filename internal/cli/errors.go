package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/opgraph/internal/codec"
	"github.com/roach88/opgraph/internal/engine"
	"github.com/roach88/opgraph/internal/graph"
	"github.com/roach88/opgraph/internal/manifest"
	"github.com/roach88/opgraph/internal/queryir"
)

// Error codes for failures that carry no code of their own. Generation and
// execution errors report their own codes.
const (
	ErrCodeGeneric    = "ERROR"
	ErrCodeConfig     = "CONFIG_INVALID"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeCorrupt    = "CORRUPT_STATE"
	ErrCodeManifest   = "MANIFEST_INVALID"
	ErrCodeQuery      = "INVALID_QUERY"
)

// errorCode classifies err for CLI output.
func errorCode(err error) string {
	var ge *graph.GenerationError
	var ee *engine.ExecutionError
	switch {
	case errors.As(err, &ge):
		return string(ge.Code)
	case errors.As(err, &ee):
		return string(ee.Code)
	case codec.IsCorruptState(err):
		return ErrCodeCorrupt
	case manifest.IsCompileError(err):
		return ErrCodeManifest
	case errors.Is(err, queryir.ErrInvalidQuery):
		return ErrCodeQuery
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	default:
		return ErrCodeGeneric
	}
}

// errorDetails extracts structured context for JSON output and verbose text.
func errorDetails(err error) map[string]any {
	var ge *graph.GenerationError
	var ee *engine.ExecutionError
	var ce *manifest.CompileError
	switch {
	case errors.As(err, &ge):
		details := map[string]any{}
		if ge.Path != "" {
			details["path"] = ge.Path
		}
		if ge.Operation != 0 {
			details["operation"] = ge.Operation
		}
		if len(ge.Cycle) > 0 {
			details["cycle"] = ge.Cycle
		}
		if len(details) == 0 {
			return nil
		}
		return details
	case errors.As(err, &ee):
		details := map[string]any{"operation": ee.Operation, "title": ee.Title}
		if ee.Code == engine.ErrCodeProcessFailed {
			details["exit_code"] = ee.ExitCode
		}
		return details
	case errors.As(err, &ce):
		details := map[string]any{"field": ce.Field}
		if ce.Pos.IsValid() {
			details["position"] = fmt.Sprintf("%s:%d:%d", ce.Pos.Filename(), ce.Pos.Line(), ce.Pos.Column())
		}
		return details
	default:
		return nil
	}
}
