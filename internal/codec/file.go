package codec

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/opgraph/internal/ir"
)

// WriteFileAtomic replaces path with data. Observers see either the old
// file or the complete new one: data goes to a temporary file in the same
// directory which is synced and then renamed over path.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// SaveValueDocument atomically writes root to path.
func SaveValueDocument(path string, root ir.Table) error {
	data, err := EncodeValueDocument(root)
	if err != nil {
		return fmt.Errorf("encode value document: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// LoadValueDocument reads a value document. A missing file returns an error
// wrapping fs.ErrNotExist; a malformed one a *CorruptStateError.
func LoadValueDocument(path string) (ir.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	table, err := DecodeValueDocument(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return table, nil
}

// TryLoadValueDocument loads prior state when it is usable. A missing or
// corrupt file reports found=false and no error so the caller rebuilds
// from scratch; only other I/O failures are returned.
func TryLoadValueDocument(path string, logger *slog.Logger) (ir.Table, bool, error) {
	table, err := LoadValueDocument(path)
	return tryResult(table, err, path, logger)
}

// SaveOperationGraph atomically writes g to path.
func SaveOperationGraph(path string, g *ir.OperationGraph) error {
	return WriteFileAtomic(path, EncodeOperationGraph(g))
}

// LoadOperationGraph reads an operation graph. A missing file returns an
// error wrapping fs.ErrNotExist; a malformed one a *CorruptStateError.
func LoadOperationGraph(path string) (*ir.OperationGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := DecodeOperationGraph(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return g, nil
}

// TryLoadOperationGraph is LoadOperationGraph with missing or corrupt files
// reported as found=false.
func TryLoadOperationGraph(path string, logger *slog.Logger) (*ir.OperationGraph, bool, error) {
	g, err := LoadOperationGraph(path)
	return tryResult(g, err, path, logger)
}

func tryResult[T any](v T, err error, path string, logger *slog.Logger) (T, bool, error) {
	var zero T
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("no prior state", "path", path)
		return zero, false, nil
	case IsCorruptState(err):
		logger.Warn("discarding unreadable state, rebuilding", "path", path, "error", err)
		return zero, false, nil
	default:
		return zero, false, err
	}
}
