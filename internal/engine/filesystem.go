package engine

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileSystem is the file access the scheduler needs: the write-file command
// and the incremental up-to-date check. Paths are normalized build paths
// with forward slashes.
type FileSystem interface {
	WriteFile(path string, data []byte) error
	ModTime(path string) (time.Time, bool, error)
}

// OSFileSystem implements FileSystem on the host file system.
type OSFileSystem struct{}

// WriteFile writes data to path, creating parent directories.
func (OSFileSystem) WriteFile(path string, data []byte) error {
	native := filepath.FromSlash(path)
	if err := os.MkdirAll(filepath.Dir(native), 0o755); err != nil {
		return err
	}
	return os.WriteFile(native, data, 0o644)
}

// ModTime returns the modification time of path. A missing file reports
// false and no error.
func (OSFileSystem) ModTime(path string) (time.Time, bool, error) {
	info, err := os.Stat(filepath.FromSlash(path))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return info.ModTime(), true, nil
}
