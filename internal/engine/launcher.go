package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/opgraph/internal/ir"
)

// Launcher starts an operation's command and waits for it to exit.
//
// Launch returns the exit code of a process that ran to completion. A
// non-nil error means the process could not be started or was killed
// because ctx was cancelled. Output lines, without line endings, must be
// delivered while the process runs.
type Launcher interface {
	Launch(ctx context.Context, cmd ir.CommandInfo, stdout, stderr func(line string)) (int, error)
}

// DefaultWaitDelay bounds how long Launch keeps reading output after the
// process has exited or been killed.
const DefaultWaitDelay = 500 * time.Millisecond

// maxLineBytes caps one delivered line. Longer lines arrive in pieces.
const maxLineBytes = 1024 * 1024

// ExecLauncher runs commands as child processes.
type ExecLauncher struct {
	// WaitDelay overrides DefaultWaitDelay when positive. A descendant that
	// inherits the output pipes, such as a backgrounded daemon, can keep them
	// open; once the child is gone its remaining output is dropped after
	// this delay.
	WaitDelay time.Duration
}

// Launch spawns cmd.Executable in cmd.WorkingDirectory. Arguments are
// split on whitespace with double-quote grouping. Output is split into
// lines while the process runs, so a chatty process never blocks on a
// full pipe.
func (l ExecLauncher) Launch(ctx context.Context, cmd ir.CommandInfo, stdout, stderr func(line string)) (int, error) {
	args, err := SplitArguments(cmd.Arguments)
	if err != nil {
		return -1, err
	}

	outLines := &lineWriter{fn: stdout}
	errLines := &lineWriter{fn: stderr}

	c := exec.CommandContext(ctx, filepath.FromSlash(cmd.Executable), args...)
	c.Dir = filepath.FromSlash(cmd.WorkingDirectory)
	c.Stdout = outLines
	c.Stderr = errLines
	c.WaitDelay = DefaultWaitDelay
	if l.WaitDelay > 0 {
		c.WaitDelay = l.WaitDelay
	}

	if err := c.Start(); err != nil {
		return -1, fmt.Errorf("failed to start process: %w", err)
	}

	waitErr := c.Wait()
	outLines.Flush()
	errLines.Flush()

	// The child exited cleanly but a descendant still held the pipes.
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		waitErr = nil
	}
	if waitErr == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, waitErr
}

// lineWriter delivers written bytes to fn one line at a time, without the
// line ending. exec copies each stream from a single goroutine, so a
// lineWriter is not shared between writers.
type lineWriter struct {
	fn  func(line string)
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			break
		}
		w.buf = append(w.buf, p[:i]...)
		w.emitLong()
		w.deliver(w.buf)
		w.buf = w.buf[:0]
		p = p[i+1:]
	}
	w.buf = append(w.buf, p...)
	w.emitLong()
	return n, nil
}

// emitLong delivers full-size pieces of an over-long line.
func (w *lineWriter) emitLong() {
	for len(w.buf) > maxLineBytes {
		w.deliver(w.buf[:maxLineBytes])
		w.buf = append(w.buf[:0], w.buf[maxLineBytes:]...)
	}
}

// Flush delivers a final line that had no line ending.
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.deliver(w.buf)
		w.buf = w.buf[:0]
	}
}

func (w *lineWriter) deliver(line []byte) {
	if w.fn != nil {
		w.fn(strings.TrimSuffix(string(line), "\r"))
	}
}

// SplitArguments splits an argument string on unquoted whitespace.
// Double quotes group text and are removed; a backslash escapes a double
// quote or another backslash inside quotes.
func SplitArguments(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inQuote bool
		started bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\'):
			i++
			current.WriteByte(s[i])
		case c == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteByte(c)
			started = true
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unterminated quote in arguments %q", s)
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}
