package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/ptfs"
	"github.com/etnz/ptfs/renderer"
	"github.com/etnz/ptfs/timeseries"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

type snapshotCmd struct {
	print bool
}

func (*snapshotCmd) Name() string { return "snapshot" }
func (*snapshotCmd) Synopsis() string {
	return "fetch the current quotes and append them to the time series"
}
func (*snapshotCmd) Usage() string {
	return `ptfs snapshot [-print]

  Reads the holdings file, fetches the current quote of every holding from
  the -source, and appends one row per holding to the time series.

  A holding whose quote cannot be fetched is recorded without a price.
  The time series is only written when the whole run succeeded.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.print, "print", false, "Print the recorded rows.")
}

func (c *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := newLogger()
	run, err := runSnapshot(ctx, logger, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.print {
		printMarkdown(renderer.RenderSnapshot(run))
		return subcommands.ExitSuccess
	}
	fmt.Printf("%d quotes recorded at %s (%d priced) in %s\n", len(run.Rows), run.RunAt, priced(run.Rows), cfg.series)
	return subcommands.ExitSuccess
}

// runSnapshot performs a single run started at 'at': read holdings, fetch quotes, append to the time series.
func runSnapshot(ctx context.Context, logger *logrus.Logger, at time.Time) (ptfs.Run, error) {
	holdings, err := ptfs.ReadHoldingsFile(cfg.holdings)
	if err != nil {
		return ptfs.Run{}, err
	}
	p, err := ptfs.Build(holdings)
	if err != nil {
		return ptfs.Run{}, fmt.Errorf("invalid portfolio in %q: %w", cfg.holdings, err)
	}
	logger.WithFields(logrus.Fields{"path": cfg.holdings, "holdings": p.Len()}).Debug("portfolio loaded")

	fetcher, closeFetcher, err := openFetcher(ctx, logger)
	defer func() {
		if err := closeFetcher(); err != nil {
			logger.WithError(err).Warn("cannot close quote source")
		}
	}()
	if err != nil {
		return ptfs.Run{}, fmt.Errorf("cannot open quote source %q: %w", cfg.source, err)
	}

	rows, _ := ptfs.Collect(ctx, p, fetcher, at)
	logger.WithFields(logrus.Fields{"rows": len(rows), "priced": priced(rows)}).Debug("quotes collected")

	store := timeseries.Open(cfg.series)
	log := logger.WithField("path", store.Path())
	existing, status, err := store.Load()
	switch status {
	case timeseries.Missing:
		log.Info("no time series yet, starting a new one")
	case timeseries.Corrupt:
		log.WithError(err).Warn("time series cannot be read, starting a new one")
		moved, err := store.Quarantine(at)
		if err != nil {
			return ptfs.Run{}, fmt.Errorf("cannot set aside unreadable time series: %w", err)
		}
		log.WithField("moved", moved).Warn("unreadable time series set aside")
	default:
		log.WithField("rows", len(existing)).Debug("time series loaded")
	}

	series, err := store.AppendAndSave(existing, rows)
	if err != nil {
		return ptfs.Run{}, err
	}
	log.WithField("rows", len(series)).Info("time series saved")
	return ptfs.Run{RunAt: at.Format(ptfs.RunTimestampLayout), Rows: rows}, nil
}

// priced counts rows with a price.
func priced(rows []ptfs.Row) (n int) {
	for _, r := range rows {
		if r.HasPrice() {
			n++
		}
	}
	return n
}
