// Command netwarden is the entry point for the home network security
// scanner CLI and daemon.
package main

import (
	"github.com/mjelva/netwarden/cmd/cli"
)

// Build information, overridden by ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
