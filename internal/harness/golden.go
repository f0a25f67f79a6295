package harness

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/opgraph/internal/engine"
	"github.com/roach88/opgraph/internal/graph"
)

// Snapshot renders a result for golden comparison: the graph text (or the
// generation error), followed by the execution outcome in id order when
// present.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	if result.Graph == nil {
		fmt.Fprintf(&buf, "error: %s\n", result.GenerationError)
		return buf.Bytes(), nil
	}
	if err := graph.WriteText(&buf, result.Graph); err != nil {
		return nil, err
	}

	if result.Report != nil {
		buf.WriteString("\nexecution:\n")
		results := slices.Clone(result.Report.Results)
		slices.SortFunc(results, func(a, b engine.OperationResult) int {
			return cmp.Compare(a.ID, b.ID)
		})
		for _, res := range results {
			fmt.Fprintf(&buf, "  %d %q %s\n", res.ID, res.Title, res.State)
		}
		if result.ExecutionError != "" {
			fmt.Fprintf(&buf, "  error: %s\n", result.ExecutionError)
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// Returns the result so callers can check expectations as well. Test
// failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
