// Command snapcheck inspects and maintains snapshot references.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/snapcheck/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "snapcheck:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
