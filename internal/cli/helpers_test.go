package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/engine"
	"github.com/roach88/opgraph/internal/testutil"
)

// fixture is a build tree in a temp directory: a sandboxed work directory,
// a manifest directory, a state directory and a config file tying them
// together.
type fixture struct {
	t        *testing.T
	work     string // absolute, forward slashes, trailing slash
	manifest string
	state    string
	config   string
	runs     int
}

const manifestTemplate = `package build

state: mode: *"debug" | string

writeFile: config: {
	workingDirectory: %[1]q
	path:             "config.h"
	content:          "mode=\(state.mode)"
}

operation: compile: {
	title:            "Compile"
	executable:       "cc"
	arguments:        "main.c"
	workingDirectory: %[1]q
	inputs: ["main.c", "config.h"]
	outputs: ["main.o"]
}

operation: link: {
	title:            "Link"
	executable:       "ld"
	arguments:        "main.o"
	workingDirectory: %[1]q
	inputs: ["main.o"]
	outputs: ["app"]
}

shared: artifact: "app"
`

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	f := &fixture{
		t:        t,
		work:     filepath.ToSlash(filepath.Join(root, "work")) + "/",
		manifest: filepath.Join(root, "manifest"),
		state:    filepath.Join(root, "state"),
		config:   filepath.Join(root, "opgraph.toml"),
	}
	require.NoError(t, os.MkdirAll(filepath.FromSlash(f.work), 0o755))
	require.NoError(t, os.MkdirAll(f.manifest, 0o755))
	require.NoError(t, os.WriteFile(f.workPath("main.c"), []byte("int main() {}\n"), 0o644))

	f.writeManifest(fmt.Sprintf(manifestTemplate, f.work))
	f.writeConfig("")
	return f
}

// writeConfig writes the fixture config followed by extra TOML.
func (f *fixture) writeConfig(extra string) {
	f.t.Helper()
	content := fmt.Sprintf(`[build]
state_dir = %q
workers = 1

[sandbox]
read = [%q]
write = [%q]

[log]
level = "warn"
%s`, f.state, f.work, f.work, extra)
	require.NoError(f.t, os.WriteFile(f.config, []byte(content), 0o644))
}

func (f *fixture) writeManifest(src string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.manifest, "build.cue"), []byte(src), 0o644))
}

func (f *fixture) workPath(name string) string {
	return filepath.Join(filepath.FromSlash(f.work), name)
}

func (f *fixture) statePath(name string) string {
	return filepath.Join(f.state, DefaultTarget, name)
}

// run executes the root command with the fixture config. Each invocation
// gets the next run id, run-1, run-2 and so on.
func (f *fixture) run(launcher engine.Launcher, args ...string) (string, error) {
	f.t.Helper()
	f.runs++

	opts := &RootOptions{
		Launcher: launcher,
		RunIDs:   engine.NewFixedGenerator(fmt.Sprintf("run-%d", f.runs)),
	}
	cmd := newRootCommand(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", f.config}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// producingLauncher returns a launcher whose compile and link commands
// create their outputs in the work directory.
func (f *fixture) producingLauncher() *testutil.FakeLauncher {
	produce := func(name string) testutil.FakeResult {
		return testutil.FakeResult{Run: func(context.Context) (int, error) {
			return 0, os.WriteFile(f.workPath(name), []byte(name), 0o644)
		}}
	}
	return testutil.NewFakeLauncher().
		On("cc", "main.c", produce("main.o")).
		On("ld", "main.o", produce("app"))
}

// age moves the modification time of work files an hour into the past.
func (f *fixture) age(names ...string) {
	f.t.Helper()
	past := time.Now().Add(-time.Hour)
	for _, name := range names {
		require.NoError(f.t, os.Chtimes(f.workPath(name), past, past))
	}
}
