// Command cinemactl runs operator tasks against the catalog database:
// connection checks, YAML seeding and streaming-link sweeps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version is stamped at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("cinemactl failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "cinemactl",
		Usage:   "operate the cinema catalog database",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "verify the database connection and count rows in every catalog table",
				Action: runCheck,
			},
			{
				Name:  "seed",
				Usage: "insert catalog rows from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "path to the seed file",
						Required: true,
					},
				},
				Action: runSeed,
			},
			{
				Name:  "check-links",
				Usage: "probe every active streaming link",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "deactivate",
						Usage: "mark unreachable links inactive",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "parallel probes",
						Value: 8,
					},
				},
				Action: runCheckLinks,
			},
		},
	}
}
