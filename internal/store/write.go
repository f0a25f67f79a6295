package store

import (
	"context"
	"fmt"

	"github.com/roach88/opgraph/internal/ir"
)

// WriteRun records a finished run and its operation results in one
// transaction. The run's Seq is assigned here as one past the largest
// recorded seq; the returned record carries it.
//
// Writing a run id twice fails with a constraint error.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord, ops []ir.OperationRecord) (ir.RunRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return ir.RunRecord{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, target, graph_digest, status, executed, up_to_date, failed, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Target,
		run.GraphDigest,
		string(run.Status),
		run.Executed,
		run.UpToDate,
		run.Failed,
		ir.EngineVersion,
	)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("write run: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO operations
		(run_id, operation_id, seq, title, state, exit_code, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("write run: prepare: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			uint32(op.OperationID),
			op.Seq,
			op.Title,
			op.State,
			op.ExitCode,
			op.DurationMS,
		); err != nil {
			return ir.RunRecord{}, fmt.Errorf("write run: insert operation %d: %w", op.OperationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ir.RunRecord{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

// PruneRuns deletes all but the newest keep runs of target. Operation rows
// go with their run. It returns the number of runs deleted.
func (s *Store) PruneRuns(ctx context.Context, target string, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune runs: keep must be >= 0, got %d", keep)
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE target = ? AND id NOT IN (
			SELECT id FROM runs WHERE target = ? ORDER BY seq DESC LIMIT ?
		)
	`, target, target, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: rows affected: %w", err)
	}
	return n, nil
}
