// Command ontoreg manages versioned RDF schemas and artifacts.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/ontoreg/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ontoreg:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
