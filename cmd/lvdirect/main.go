// SPDX-License-Identifier: MIT

// Command lvdirect factors and solves sparse linear systems on a set of
// in-process ranks.
package main

import (
	"fmt"
	"os"

	"github.com/katalvlaran/lvdirect/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
