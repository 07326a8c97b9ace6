// Package main implements the ws compiler CLI (wsc).
// It provides commands for compiling ws modules to JavaScript, watching
// source trees for changes, and inspecting control flow graphs.
package main

import (
	"os"

	"github.com/aweary/compiler/cmd/wsc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
