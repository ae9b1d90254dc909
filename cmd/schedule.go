package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type scheduleCmd struct {
	spec string
	now  bool
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "take snapshots periodically" }
func (*scheduleCmd) Usage() string {
	return `ptfs schedule [-cron <expr>] [-now]

  Runs 'ptfs snapshot' on a cron schedule until interrupted. The expression
  uses the standard five fields (minute hour day month weekday) or a
  descriptor like '@hourly' or '@every 2h'.

  A run that fails is logged and does not stop the schedule. A run is
  skipped if the previous one is still in progress.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.spec, "cron", getEnv("PTFS_SCHEDULE", "0 18 * * 1-5"), "Cron expression of the snapshot runs.")
	f.BoolVar(&c.now, "now", false, "Also take a snapshot immediately.")
}

func (c *scheduleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := newLogger()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := func(ctx context.Context) {
		run, err := runSnapshot(ctx, logger, time.Now())
		if err != nil {
			logger.WithError(err).Error("snapshot failed")
			return
		}
		logger.WithFields(logrus.Fields{"run": run.RunAt, "rows": len(run.Rows), "priced": priced(run.Rows)}).Info("snapshot taken")
	}

	sched, err := newScheduler(ctx, logger, c.spec, job)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.now {
		job(ctx)
	}
	sched.Start()
	logger.WithField("cron", c.spec).Info("scheduler started")
	<-ctx.Done()
	logger.Info("stopping scheduler")
	<-sched.Stop().Done()
	return subcommands.ExitSuccess
}

// newScheduler returns a stopped scheduler calling job on spec.
//
// Runs never overlap, and a panic in a run is logged.
func newScheduler(ctx context.Context, logger *logrus.Logger, spec string, job func(context.Context)) (*cron.Cron, error) {
	l := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return c, nil
}
