package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/opgraph/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, target string, status ir.RunStatus) ir.RunRecord {
	return ir.RunRecord{
		ID:          id,
		Target:      target,
		GraphDigest: "digest-" + target,
		Status:      status,
	}
}

// writeTestRuns writes n succeeded runs of target with ids <target>-1..n.
func writeTestRuns(t *testing.T, s *Store, target string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		run := createTestRun(fmt.Sprintf("%s-%d", target, i), target, ir.RunSucceeded)
		if _, err := s.WriteRun(context.Background(), run, nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}
}
