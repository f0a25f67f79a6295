package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/opgraph/internal/ir"
	"github.com/roach88/opgraph/internal/queryir"
	"github.com/roach88/opgraph/internal/querysql"
)

// Schema is the queryable shape of the history tables. Column order matches
// the scan order of scanRun and scanOperation.
var Schema = queryir.Schema{
	TableRuns: {
		Columns: []string{"id", "seq", "target", "graph_digest", "status", "executed", "up_to_date", "failed"},
		Key:     []queryir.OrderTerm{{Column: "seq", Descending: true}},
	},
	TableOperations: {
		Columns: []string{"run_id", "operation_id", "seq", "title", "state", "exit_code", "duration_ms"},
		Key:     []queryir.OrderTerm{{Column: "seq"}, {Column: "operation_id"}},
	},
}

// Queryable tables.
const (
	TableRuns       = "runs"
	TableOperations = "operations"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	var status string
	if err := row.Scan(
		&run.ID, &run.Seq, &run.Target, &run.GraphDigest, &status,
		&run.Executed, &run.UpToDate, &run.Failed,
	); err != nil {
		return ir.RunRecord{}, err
	}
	run.Status = ir.RunStatus(status)
	return run, nil
}

// ReadRuns returns recorded runs newest first. An empty target matches
// every target; limit <= 0 returns all runs.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadRuns(ctx context.Context, target string, limit int) ([]ir.RunRecord, error) {
	q := queryir.Select{From: TableRuns, Limit: limit}
	if target != "" {
		q.Filter = queryir.Eq("target", target)
	}
	return s.FindRuns(ctx, q)
}

// FindRuns returns the runs selected by q, newest first.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) FindRuns(ctx context.Context, q queryir.Select) ([]ir.RunRecord, error) {
	if q.From != TableRuns {
		return nil, fmt.Errorf("%w: runs query reads %q", queryir.ErrInvalidQuery, q.From)
	}
	rows, err := s.find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	runs, err := s.FindRuns(ctx, queryir.Select{From: TableRuns, Filter: queryir.Eq("id", id), Limit: 1})
	if err != nil {
		return ir.RunRecord{}, err
	}
	if len(runs) == 0 {
		return ir.RunRecord{}, sql.ErrNoRows
	}
	return runs[0], nil
}

// LastRun returns the newest run of target, if any.
func (s *Store) LastRun(ctx context.Context, target string) (ir.RunRecord, bool, error) {
	runs, err := s.ReadRuns(ctx, target, 1)
	if err != nil {
		return ir.RunRecord{}, false, fmt.Errorf("last run: %w", err)
	}
	if len(runs) == 0 {
		return ir.RunRecord{}, false, nil
	}
	return runs[0], true, nil
}

// ReadRunOperations returns the operation results of a run in completion
// order (seq ASC, operation_id ASC).
//
// Returns an empty slice (not nil) if the run has no operations.
func (s *Store) ReadRunOperations(ctx context.Context, runID string) ([]ir.OperationRecord, error) {
	return s.FindOperations(ctx, queryir.Select{From: TableOperations, Filter: queryir.Eq("run_id", runID)})
}

// FindOperations returns the operation records selected by q. q is either a
// Select over operations or a Join of operations (left) with runs (right),
// which orders records newest run first.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) FindOperations(ctx context.Context, q queryir.Query) ([]ir.OperationRecord, error) {
	var from string
	switch query := q.(type) {
	case queryir.Select:
		from = query.From
	case queryir.Join:
		from = query.Left.From
	}
	if from != TableOperations {
		return nil, fmt.Errorf("%w: operations query reads %q", queryir.ErrInvalidQuery, from)
	}

	rows, err := s.find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []ir.OperationRecord{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

func scanOperation(row rowScanner) (ir.OperationRecord, error) {
	var op ir.OperationRecord
	var id uint32
	if err := row.Scan(&op.RunID, &id, &op.Seq, &op.Title, &op.State, &op.ExitCode, &op.DurationMS); err != nil {
		return ir.OperationRecord{}, err
	}
	op.OperationID = ir.OperationID(id)
	return op, nil
}

func (s *Store) find(ctx context.Context, q queryir.Query) (*sql.Rows, error) {
	query, args, err := querysql.NewCompiler(Schema).Compile(q)
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, query, args...)
}
