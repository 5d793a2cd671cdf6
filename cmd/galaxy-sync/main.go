// Command galaxy-sync mirrors Galaxy workflow runs into a local database.
package main

import (
	"fmt"
	"os"

	"github.com/jdziat/galaxy-sync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "galaxy-sync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
