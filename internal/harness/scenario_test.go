package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opgraph/internal/ir"
)

func TestLoadScenario_Reduction(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/reduction.yaml")
	require.NoError(t, err)

	assert.Equal(t, "reduction", s.Name)
	assert.Equal(t, []string{"C:/Work/"}, s.Access.Read)
	require.Len(t, s.Operations, 3)
	assert.Equal(t, "B", s.Operations[1].Title)
	assert.Equal(t, []string{"a.txt"}, s.Operations[1].Inputs)
	assert.Equal(t, []ir.OperationID{1}, s.Expect.Roots)
	assert.Equal(t, []ir.OperationID{3}, s.Expect.Children[2])
	assert.Empty(t, s.Expect.Children[3])
	assert.Equal(t, uint32(1), s.Expect.DependencyCounts[3])
	require.NotNil(t, s.Execute)
	assert.Equal(t, []string{"A", "B", "C"}, s.Execute.Order)
}

func TestLoadScenario_WriteFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/write_file.yaml")
	require.NoError(t, err)

	require.NotNil(t, s.Operations[0].WriteFile)
	assert.Equal(t, "config.h", s.Operations[0].WriteFile.Path)
	assert.Equal(t, "#define MODE 1", s.Operations[0].WriteFile.Content)
	assert.Equal(t, "WriteFile [config.h]", s.Operations[0].displayTitle())
	assert.Equal(t, "succeeded", s.Execute.States["WriteFile [config.h]"])
}

func TestLoadScenario_AllFixturesParse(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, filepath.Base(path), s.Name+".yaml")
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	content := `
name: single
description: one operation
access: {read: [C:/W/], write: [C:/W/]}
operations:
  - title: Only
    executable: tool.exe
    working_directory: C:/W/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Nil(t, s.Execute)
	assert.Equal(t, "Only", s.Operations[0].Title)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: d\nbogus: 1\noperations: [{title: A, executable: a, working_directory: C:/}]\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\noperations: [{title: A, executable: a, working_directory: C:/}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\noperations: [{title: A, executable: a, working_directory: C:/}]\n",
			want: "description is required",
		},
		{
			name: "no operations",
			yaml: "name: x\ndescription: d\n",
			want: "operations list is required",
		},
		{
			name: "missing working directory",
			yaml: "name: x\ndescription: d\noperations: [{title: A, executable: a}]\n",
			want: "working_directory is required",
		},
		{
			name: "executable and write_file",
			yaml: "name: x\ndescription: d\noperations: [{title: A, executable: a, working_directory: C:/, write_file: {path: p}}]\n",
			want: "mutually exclusive",
		},
		{
			name: "neither executable nor write_file",
			yaml: "name: x\ndescription: d\noperations: [{title: A, working_directory: C:/}]\n",
			want: "executable or write_file is required",
		},
		{
			name: "write_file without path",
			yaml: "name: x\ndescription: d\noperations: [{working_directory: C:/, write_file: {content: c}}]\n",
			want: "path is required",
		},
		{
			name: "missing title",
			yaml: "name: x\ndescription: d\noperations: [{executable: a, working_directory: C:/}]\n",
			want: "title is required",
		},
		{
			name: "duplicate title",
			yaml: "name: x\ndescription: d\noperations: [{title: A, executable: a, working_directory: C:/}, {title: A, executable: b, working_directory: C:/}]\n",
			want: `duplicate title "A"`,
		},
		{
			name: "execute with expected error",
			yaml: "name: x\ndescription: d\noperations: [{title: A, executable: a, working_directory: C:/}]\nexpect: {error: CYCLE_DETECTED}\nexecute: {}\n",
			want: "cannot be combined",
		},
		{
			name: "negative workers",
			yaml: "name: x\ndescription: d\noperations: [{title: A, executable: a, working_directory: C:/}]\nexecute: {workers: -1}\n",
			want: "workers must be non-negative",
		},
		{
			name: "fail unknown title",
			yaml: "name: x\ndescription: d\noperations: [{title: A, executable: a, working_directory: C:/}]\nexecute: {fail: {B: 1}}\n",
			want: `unknown operation title "B"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
