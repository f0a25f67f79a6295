package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/opgraph/internal/ir"
)

// WriteText renders g in a stable, line-oriented form used by `opgraph show`
// and the golden snapshots. Operations appear in id order.
func WriteText(w io.Writer, g *ir.OperationGraph) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "roots: %s\n", joinIDs(g.RootOperationIDs))
	for _, id := range g.SortedOperationIDs() {
		op := g.Operations[id]
		fmt.Fprintf(bw, "\noperation %d %q\n", op.ID, op.Title)
		fmt.Fprintf(bw, "  command: %s\n", op.Command)
		writeFiles(bw, "inputs", op.DeclaredInput, g.ReferencedFiles)
		writeFiles(bw, "outputs", op.DeclaredOutput, g.ReferencedFiles)
		fmt.Fprintf(bw, "  children: %s\n", joinIDs(op.Children))
		fmt.Fprintf(bw, "  dependency_count: %d\n", op.DependencyCount)
		if op.WasSuccessfulRun {
			fmt.Fprintf(bw, "  succeeded: true\n")
		}
	}
	return bw.Flush()
}

func writeFiles(w io.Writer, label string, ids []ir.FileID, referenced map[ir.FileID]string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for _, id := range ids {
		path, ok := referenced[id]
		if !ok {
			path = fmt.Sprintf("<unknown file %d>", id)
		}
		fmt.Fprintf(w, "    %s\n", path)
	}
}

func joinIDs(ids []ir.OperationID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, " ")
}
