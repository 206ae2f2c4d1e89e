// Command dexter runs the run ledger server and inspects its data offline.
//
// Usage:
//
//	dexter serve [--config dexter.yaml]
//	dexter runs list [--json]
//	dexter runs show <run_id> [--json]
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	v1 "github.com/XavTo/dexter/internal/transport/http/v1"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "dexter",
		Usage:   "Run ledger and execution tracking server",
		Version: fmt.Sprintf("%s (commit: %s)", v1.Version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			runsCommand(),
		},
	}
}
