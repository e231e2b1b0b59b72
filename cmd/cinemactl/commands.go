package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/config"
	"github.com/Clark-Hu/cinema-online/internal/linkcheck"
	"github.com/Clark-Hu/cinema-online/internal/logging"
	"github.com/Clark-Hu/cinema-online/internal/repository"
	"github.com/Clark-Hu/cinema-online/internal/seed"
	"github.com/Clark-Hu/cinema-online/internal/store"
)

const serviceName = "cinemactl"

// env is what every subcommand needs: a catalog over an open pool.
type env struct {
	cfg     config.Config
	logger  *logrus.Entry
	catalog *catalog.Service
	close   func()
}

func openEnv(c *cli.Context) (*env, error) {
	cfg := config.LoadDatabase()
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	logger := logging.NewLogger(serviceName, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(c.Context, time.Duration(cfg.DBConnTimeoutSecs)*time.Second)
	defer cancel()
	st, err := store.New(ctx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &env{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog.New(repository.New(st), logger),
		close:   st.Close,
	}, nil
}

func runCheck(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	conn := e.catalog.CheckConnection(c.Context)
	probes := e.catalog.TableStatus(c.Context)
	printStatus(os.Stdout, conn, probes)
	if !conn.Connected {
		return cli.Exit("database connection failed", 1)
	}
	for _, p := range probes {
		if !p.OK() {
			return cli.Exit(fmt.Sprintf("table %s is not readable", p.Table), 1)
		}
	}
	return nil
}

func runSeed(c *cli.Context) error {
	file, err := seed.LoadFile(c.String("file"))
	if err != nil {
		return err
	}
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	summary, err := seed.Apply(c.Context, e.catalog, file, e.logger)
	printSeedSummary(os.Stdout, summary)
	return err
}

func runCheckLinks(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	checker := linkcheck.NewHTTPChecker(time.Duration(e.cfg.LinkCheckTimeoutSecs)*time.Second, e.logger)
	report, err := linkcheck.Sweep(c.Context, e.catalog, checker, c.Int("concurrency"), c.Bool("deactivate"), e.logger)
	if err != nil {
		return err
	}
	printSweep(os.Stdout, report)
	return nil
}

func printStatus(w io.Writer, conn catalog.ConnectionStatus, probes []catalog.TableProbe) {
	if conn.Connected {
		fmt.Fprintf(w, "connection: ok (%s)\n", conn.Latency.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "connection: FAILED: %v\n", conn.Err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS\tSTATUS")
	for _, p := range probes {
		status := "ok"
		if !p.OK() {
			status = "error: " + p.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Table, p.Rows, status)
	}
	tw.Flush()
}

func printSeedSummary(w io.Writer, s seed.Summary) {
	fmt.Fprintf(w, "movies: %d, episodes: %d (skipped %d), links: %d (skipped %d)\n",
		s.Movies, s.Episodes, s.SkippedEpisodes, s.Links, s.SkippedLinks)
}

func printSweep(w io.Writer, r linkcheck.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINK\tSERVER\tSTATUS\tLATENCY\tTARGET")
	for _, res := range r.Results {
		if res.Reachable {
			continue
		}
		status := fmt.Sprintf("%d", res.Status)
		if res.Err != nil {
			status = res.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", res.Link.ID, res.Link.ServerName, status, res.Latency.Round(time.Millisecond), res.Target)
	}
	tw.Flush()
	fmt.Fprintf(w, "checked: %d, unreachable: %d, deactivated: %d\n", r.Checked, r.Unreachable, r.Deactivated)
}
