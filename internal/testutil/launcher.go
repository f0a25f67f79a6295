package testutil

import (
	"context"
	"sync"

	"github.com/roach88/opgraph/internal/ir"
)

// FakeResult scripts the outcome of one command.
type FakeResult struct {
	ExitCode int
	Stdout   []string
	Stderr   []string
	Err      error

	// Run, when set, replaces ExitCode and Err. It runs after output lines
	// are delivered and may block on ctx.
	Run func(ctx context.Context) (int, error)
}

// FakeLauncher records launched commands and returns scripted results.
// Commands without a script succeed with no output.
//
// Thread-safety: FakeLauncher is safe for concurrent use.
type FakeLauncher struct {
	mu      sync.Mutex
	scripts map[string]FakeResult
	calls   []ir.CommandInfo
}

// NewFakeLauncher creates a launcher where every command succeeds.
func NewFakeLauncher() *FakeLauncher {
	return &FakeLauncher{scripts: make(map[string]FakeResult)}
}

// On scripts the result for commands with the given executable and arguments.
func (f *FakeLauncher) On(executable, arguments string, result FakeResult) *FakeLauncher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[executable+"\x00"+arguments] = result
	return f
}

// Launch implements engine.Launcher.
func (f *FakeLauncher) Launch(ctx context.Context, cmd ir.CommandInfo, stdout, stderr func(line string)) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	result := f.scripts[cmd.Executable+"\x00"+cmd.Arguments]
	f.mu.Unlock()

	for _, line := range result.Stdout {
		stdout(line)
	}
	for _, line := range result.Stderr {
		stderr(line)
	}
	if result.Run != nil {
		return result.Run(ctx)
	}
	return result.ExitCode, result.Err
}

// Calls returns the launched commands in launch order.
func (f *FakeLauncher) Calls() []ir.CommandInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ir.CommandInfo(nil), f.calls...)
}

// Arguments returns the argument string of every launched command in order.
func (f *FakeLauncher) Arguments() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Arguments
	}
	return out
}
