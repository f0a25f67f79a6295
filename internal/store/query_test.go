package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/queryir"
)

func TestFindRuns_ByStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, run := range []ir.RunRecord{
		createTestRun("app-1", "app", ir.RunSucceeded),
		createTestRun("app-2", "app", ir.RunFailed),
		createTestRun("lib-1", "lib", ir.RunFailed),
		createTestRun("app-3", "app", ir.RunFailed),
	} {
		if _, err := s.WriteRun(ctx, run, nil); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}

	runs, err := s.FindRuns(ctx, queryir.Select{
		From: TableRuns,
		Filter: queryir.All(
			queryir.Eq("target", "app"),
			queryir.Eq("status", string(ir.RunFailed)),
		),
	})
	if err != nil {
		t.Fatalf("FindRuns() failed: %v", err)
	}

	want := []string{"app-3", "app-2"}
	if len(runs) != len(want) {
		t.Fatalf("len(runs) = %d, want %d", len(runs), len(want))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
		}
	}
}

func TestFindRuns_RejectsUnknownColumn(t *testing.T) {
	s := createTestStore(t)

	_, err := s.FindRuns(context.Background(), queryir.Select{
		From:   TableRuns,
		Filter: queryir.Eq("engine_version", "x"),
	})
	if !errors.Is(err, queryir.ErrInvalidQuery) {
		t.Errorf("FindRuns() error = %v, want ErrInvalidQuery", err)
	}
}

func TestFindRuns_RejectsOtherTable(t *testing.T) {
	s := createTestStore(t)

	_, err := s.FindRuns(context.Background(), queryir.Select{From: TableOperations})
	if !errors.Is(err, queryir.ErrInvalidQuery) {
		t.Errorf("FindRuns() error = %v, want ErrInvalidQuery", err)
	}
}

func TestFindOperations_JoinWithRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	write := func(run ir.RunRecord, state string) {
		t.Helper()
		ops := []ir.OperationRecord{
			{RunID: run.ID, OperationID: 1, Seq: 1, Title: "Compile main.c", State: "succeeded"},
			{RunID: run.ID, OperationID: 2, Seq: 2, Title: "Link app", State: state, ExitCode: 1},
		}
		if _, err := s.WriteRun(ctx, run, ops); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", run.ID, err)
		}
	}
	write(createTestRun("app-1", "app", ir.RunFailed), "failed")
	write(createTestRun("lib-1", "lib", ir.RunFailed), "failed")
	write(createTestRun("app-2", "app", ir.RunSucceeded), "succeeded")
	write(createTestRun("app-3", "app", ir.RunFailed), "failed")

	ops, err := s.FindOperations(ctx, queryir.Join{
		Left: queryir.Select{From: TableOperations, Filter: queryir.All(
			queryir.Eq("title", "Link app"),
			queryir.Eq("state", "failed"),
		)},
		Right: queryir.Select{From: TableRuns, Filter: queryir.Eq("target", "app")},
		On:    queryir.On{Left: "run_id", Right: "id"},
	})
	if err != nil {
		t.Fatalf("FindOperations() failed: %v", err)
	}

	want := []string{"app-3", "app-1"}
	if len(ops) != len(want) {
		t.Fatalf("len(ops) = %d, want %d", len(ops), len(want))
	}
	for i, runID := range want {
		if ops[i].RunID != runID {
			t.Errorf("ops[%d].RunID = %q, want %q", i, ops[i].RunID, runID)
		}
		if ops[i].OperationID != 2 || ops[i].ExitCode != 1 {
			t.Errorf("ops[%d] = %+v, want operation 2 with exit code 1", i, ops[i])
		}
	}
}

func TestFindOperations_Limit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ops := []ir.OperationRecord{
		{RunID: "run-1", OperationID: 1, Seq: 1, Title: "A", State: "succeeded"},
		{RunID: "run-1", OperationID: 2, Seq: 2, Title: "B", State: "succeeded"},
		{RunID: "run-1", OperationID: 3, Seq: 3, Title: "C", State: "succeeded"},
	}
	if _, err := s.WriteRun(ctx, createTestRun("run-1", "app", ir.RunSucceeded), ops); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.FindOperations(ctx, queryir.Select{From: TableOperations, Limit: 2})
	if err != nil {
		t.Fatalf("FindOperations() failed: %v", err)
	}
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "B" {
		t.Errorf("FindOperations() = %+v, want A then B", got)
	}
}
