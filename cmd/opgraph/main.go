// Command opgraph generates and evaluates operation graphs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/opgraph/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "opgraph:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
