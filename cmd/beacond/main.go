// Package main provides the beacond service entrypoint.
//
// beacond serves the tracking pixel intake: hits arrive over HTTP, run
// through profile enforcement and aggregation, and are committed to the
// redis backend by the ingestion actor.
//
// Usage:
//
//	beacond serve [options]
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// commit is set via ldflags at build time.
var commit = "unknown"

// version is the beacond release version.
const version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "beacond",
		Usage:   "Beacon tracking pixel server",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Commands: []*cli.Command{
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
