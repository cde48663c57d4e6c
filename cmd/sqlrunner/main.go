// Command sqlrunner runs SQL scripts and scenario files against a throwaway
// embedded backend.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sqlrunner/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors have already been reported in the requested format.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
