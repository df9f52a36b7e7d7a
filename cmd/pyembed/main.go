// Command pyembed is a thin CLI wrapper around the engine package, useful
// for smoke-testing scripts and limits configuration without writing a Go
// host program. The engine itself is the thing meant to be embedded; this
// binary is a convenience, not the primary surface.
package main

import (
	"os"

	"github.com/cwbudde/go-pyembed/cmd/pyembed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
