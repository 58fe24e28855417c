// Command tracescope inspects route trees and drives traced navigations.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tracescope/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
