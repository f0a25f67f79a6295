package ir

// NOTE: These are store records for build history, not part of the
// persisted graph.

// RunStatus is the outcome of one evaluate run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord summarizes one evaluate run.
type RunRecord struct {
	ID          string    `json:"id"`  // UUIDv7
	Seq         int64     `json:"seq"` // Logical clock, assigned by the store
	Target      string    `json:"target"`
	GraphDigest string    `json:"graph_digest"`
	Status      RunStatus `json:"status"`
	Executed    int       `json:"executed"`
	UpToDate    int       `json:"up_to_date"`
	Failed      int       `json:"failed"`
}

// OperationRecord is the outcome of one operation within a run.
type OperationRecord struct {
	RunID       string      `json:"run_id"`
	OperationID OperationID `json:"operation_id"`
	Seq         int64       `json:"seq"` // Completion order within the run
	Title       string      `json:"title"`
	State       string      `json:"state"`
	ExitCode    int         `json:"exit_code"`
	DurationMS  int64       `json:"duration_ms"`
}
