// Command ventserver runs the ventilator backend.
package main

import (
	"fmt"
	"os"

	"github.com/pez-globo/ventserver/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
