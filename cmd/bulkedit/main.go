// Command bulkedit applies availability rule changes across many catalog
// items in resumable, checkpointed batches.
package main

import (
	"fmt"
	"os"

	"github.com/smartdev1/tours-bulk-editor/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
