// Package cmd implements the CLI application to record portfolio quotes.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/etnz/ptfs"
	"github.com/etnz/ptfs/justetf"
	"github.com/etnz/ptfs/renderer"
	"github.com/etnz/ptfs/tradegate"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Quote sources accepted by -source.
const (
	SourceJustETF   = "justetf"
	SourceTradegate = "tradegate"
	SourceFallback  = "justetf+tradegate"
)

// Sources lists the valid values of -source.
var Sources = []string{SourceJustETF, SourceTradegate, SourceFallback}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

// app holds the global flags.
type app struct {
	holdings   string
	series     string
	source     string
	chromePath string
	timeout    time.Duration
	verbose    bool
}

var cfg app

// Register defines the global flags and the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
//
// Flag defaults are read from the environment, after loading the .env file of the working directory, if any.
func Register(c *subcommands.Commander) {
	_ = godotenv.Load()

	flag.StringVar(&cfg.holdings, "holdings", getEnv("PTFS_HOLDINGS", "holdings.csv"), "Path to the holdings file (CSV or XLSX)")
	flag.StringVar(&cfg.series, "series", getEnv("PTFS_SERIES", "timeseries.jsonl"), "Path to the time series file (JSONL format)")
	flag.StringVar(&cfg.source, "source", getEnv("PTFS_SOURCE", SourceJustETF), "Quote source: "+strings.Join(Sources, ", "))
	flag.StringVar(&cfg.chromePath, "chrome", getEnv("PTFS_CHROME_PATH", ""), "Path to the chrome executable, searched in the PATH by default")
	flag.DurationVar(&cfg.timeout, "timeout", getEnvDuration("PTFS_TIMEOUT", 20*time.Second), "Maximum time spent fetching a single quote")
	flag.BoolVar(&cfg.verbose, "v", false, "Verbose logging")

	c.Register(&snapshotCmd{}, "quotes")
	c.Register(&scheduleCmd{}, "quotes")
	c.Register(&historyCmd{}, "quotes")
	c.Register(&validateCmd{}, "holdings")

	c.Register(&topicCmd{}, "help")
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvDuration gets a duration environment variable or returns a default value if unset or invalid.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// newLogger returns the logger shared by the commands and the quote sources.
func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	if cfg.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// openFetcher opens the quote source named by -source.
//
// The returned close function releases the source and must always be called.
// It is a variable so that tests can replace the network.
var openFetcher = openSource

// openBrowser and openHTTP open the two quote sources.
var (
	openBrowser = func(ctx context.Context, logger *logrus.Logger) (ptfs.Fetcher, func() error, error) {
		s, err := justetf.Open(ctx,
			justetf.WithExecPath(cfg.chromePath),
			justetf.WithTimeout(cfg.timeout),
			justetf.WithLogger(logger),
		)
		if err != nil {
			return nil, func() error { return nil }, err
		}
		return s, s.Close, nil
	}
	openHTTP = func(logger *logrus.Logger) ptfs.Fetcher { return newTradegate(logger) }
)

func openSource(ctx context.Context, logger *logrus.Logger) (ptfs.Fetcher, func() error, error) {
	noop := func() error { return nil }
	switch cfg.source {
	case SourceTradegate:
		return openHTTP(logger), noop, nil
	case SourceJustETF:
		return openBrowser(ctx, logger)
	case SourceFallback:
		browser, closeBrowser, err := openBrowser(ctx, logger)
		if err != nil {
			closeBrowser()
			logger.WithError(err).Warn("justETF unavailable, quotes are fetched from Tradegate only")
			return openHTTP(logger), noop, nil
		}
		return ptfs.Fallback(browser, openHTTP(logger)), closeBrowser, nil
	default:
		return nil, noop, fmt.Errorf("unknown quote source %q, want one of %s", cfg.source, strings.Join(Sources, ", "))
	}
}

// printMarkdown renders markdown for the terminal, or prints it raw if it cannot.
func printMarkdown(md string) {
	out, err := renderer.Terminal(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
