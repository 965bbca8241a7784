// Package main implements the cflowchart CLI (cfc).
// It renders the functions of C source files as flowcharts.
package main

import (
	"os"

	"github.com/l3aro/cflowchart/cmd/cfc/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version = version + " (" + buildTime + ")"
	}
	commands.RootCmd.SetVersionTemplate(`cfc version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
