package testutil

import (
	"sync"
	"time"
)

// MemFS is an in-memory file system. Every write advances a logical clock
// by one second so modification order is deterministic.
//
// Thread-safety: MemFS is safe for concurrent use.
type MemFS struct {
	mu    sync.Mutex
	files map[string]memFile
	now   time.Time
}

type memFile struct {
	data []byte
	mod  time.Time
}

// NewMemFS creates an empty file system whose clock starts at 2024-01-01 UTC.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]memFile),
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MemFS) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

// WriteFile stores data under path with a fresh modification time.
func (m *MemFS) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = memFile{data: append([]byte(nil), data...), mod: m.tick()}
	return nil
}

// ModTime returns the modification time of path.
func (m *MemFS) ModTime(path string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	return f.mod, ok, nil
}

// ReadFile returns the contents of path.
func (m *MemFS) ReadFile(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	return string(f.data), ok
}

// Touch bumps the modification time of path, creating it empty if missing.
func (m *MemFS) Touch(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.files[path]
	f.mod = m.tick()
	m.files[path] = f
}

// Remove deletes path.
func (m *MemFS) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}
