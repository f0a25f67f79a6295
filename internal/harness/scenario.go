package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/opgraph/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Access lists the sandbox prefixes handed to the generator.
	Access Access `yaml:"access"`

	// Operations are declared in order; ids follow this order.
	Operations []OperationStep `yaml:"operations"`

	// Expect validates the generated graph.
	Expect Expectations `yaml:"expect"`

	// Execute, when present, runs the generated graph.
	Execute *ExecuteStep `yaml:"execute,omitempty"`
}

// Access lists absolute directory prefixes.
type Access struct {
	Read  []string `yaml:"read"`
	Write []string `yaml:"write"`
}

// OperationStep declares one operation. Exactly one of Executable and
// WriteFile must be set.
type OperationStep struct {
	Title            string         `yaml:"title"`
	Executable       string         `yaml:"executable,omitempty"`
	Arguments        string         `yaml:"arguments,omitempty"`
	WorkingDirectory string         `yaml:"working_directory"`
	Inputs           []string       `yaml:"inputs,omitempty"`
	Outputs          []string       `yaml:"outputs,omitempty"`
	WriteFile        *WriteFileStep `yaml:"write_file,omitempty"`
}

// WriteFileStep declares an in-process file write.
type WriteFileStep struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// Expectations describe the generated graph. Unset fields are not checked.
type Expectations struct {
	// Roots is the exact root id list.
	Roots []ir.OperationID `yaml:"roots,omitempty"`

	// Children maps an operation id to its exact child list.
	Children map[ir.OperationID][]ir.OperationID `yaml:"children,omitempty"`

	// DependencyCounts maps an operation id to its dependency count.
	DependencyCounts map[ir.OperationID]uint32 `yaml:"dependency_counts,omitempty"`

	// Error is the expected generation error code. When set, generation
	// must fail with exactly this code.
	Error string `yaml:"error,omitempty"`
}

// ExecuteStep runs the graph and checks the outcome.
type ExecuteStep struct {
	// Workers selects the driver; 0 or 1 is the sequential driver.
	Workers int `yaml:"workers,omitempty"`

	// Fail scripts a non-zero exit code per operation title.
	Fail map[string]int `yaml:"fail,omitempty"`

	// States maps an operation title to its expected final state. Titles
	// missing from the run are reported as "not_run".
	States map[string]string `yaml:"states,omitempty"`

	// Order is the expected completion order of titles.
	Order []string `yaml:"order,omitempty"`

	// Error is the expected execution error code.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML held in memory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Operations) == 0 {
		return fmt.Errorf("operations list is required and must be non-empty")
	}

	titles := make(map[string]bool)
	for i, op := range s.Operations {
		if op.WorkingDirectory == "" {
			return fmt.Errorf("operations[%d]: working_directory is required", i)
		}
		switch {
		case op.WriteFile != nil && op.Executable != "":
			return fmt.Errorf("operations[%d]: executable and write_file are mutually exclusive", i)
		case op.WriteFile == nil && op.Executable == "":
			return fmt.Errorf("operations[%d]: executable or write_file is required", i)
		case op.WriteFile != nil && op.WriteFile.Path == "":
			return fmt.Errorf("operations[%d].write_file: path is required", i)
		case op.WriteFile == nil && op.Title == "":
			return fmt.Errorf("operations[%d]: title is required", i)
		}
		title := op.displayTitle()
		if titles[title] {
			return fmt.Errorf("operations[%d]: duplicate title %q", i, title)
		}
		titles[title] = true
	}

	if s.Execute != nil {
		if s.Expect.Error != "" {
			return fmt.Errorf("execute cannot be combined with an expected generation error")
		}
		if s.Execute.Workers < 0 {
			return fmt.Errorf("execute.workers must be non-negative")
		}
		for title := range s.Execute.Fail {
			if !titles[title] {
				return fmt.Errorf("execute.fail: unknown operation title %q", title)
			}
		}
	}
	return nil
}

// displayTitle is the title the build-state facade assigns.
func (op OperationStep) displayTitle() string {
	if op.WriteFile != nil {
		return "WriteFile [" + op.WriteFile.Path + "]"
	}
	return op.Title
}
