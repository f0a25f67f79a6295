package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/opgraph/internal/config"
	"github.com/roach88/opgraph/internal/fspath"
	"github.com/roach88/opgraph/internal/store"
)

// Files kept in a target's state directory.
const (
	GraphFileName   = "generate.bog"
	ResultsFileName = "results.bog"
	ActiveFileName  = "active.bvt"
	SharedFileName  = "shared.bvt"

	// HistoryFileName lives in the state root and is shared by all targets.
	HistoryFileName = "history.db"
)

// workspace is the resolved configuration, logger and state directory of
// one command invocation.
type workspace struct {
	cfg    *config.Config
	logger *slog.Logger
	dir    string
}

// openWorkspace loads configuration for opts. Without --config, an
// opgraph.toml in the current directory is used when present.
func openWorkspace(opts *RootOptions, cmd *cobra.Command) (*workspace, error) {
	path := opts.Config
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &workspace{
		cfg:    cfg,
		logger: logger,
		dir:    filepath.Join(cfg.Build.StateDir, opts.Target),
	}, nil
}

// path returns the location of a state file of the target.
func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) ensureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	return nil
}

// openHistory opens the history database, or returns nil when history is
// disabled.
func (w *workspace) openHistory() (*store.Store, error) {
	if !w.cfg.History.Enabled {
		return nil, nil
	}
	if err := os.MkdirAll(w.cfg.Build.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return store.Open(filepath.Join(w.cfg.Build.StateDir, HistoryFileName))
}

// access merges the configured sandbox with additional prefixes.
func access(configured []fspath.Path, extra []string) []fspath.Path {
	out := append([]fspath.Path{}, configured...)
	for _, s := range extra {
		out = append(out, fspath.Parse(s).EnsureDirectory())
	}
	return out
}

// newLogger builds the slog handler selected by the log section. --verbose
// forces debug level.
func newLogger(cfg config.LogConfig, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// commandContext returns the command's context, falling back to Background
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
