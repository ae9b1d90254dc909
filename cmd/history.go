package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ptfs"
	"github.com/etnz/ptfs/renderer"
	"github.com/etnz/ptfs/timeseries"
	"github.com/google/subcommands"
)

type historyCmd struct {
	html string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the recorded quotes" }
func (*historyCmd) Usage() string {
	return `ptfs history [-html <file>]

  Displays the latest run of the time series and, for each identifier, how
  many times it was observed and priced.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.html, "html", "", "Write the report as HTML to this file instead of the terminal.")
}

func (c *historyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	md, err := historyMarkdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.html == "" {
		printMarkdown(md)
		return subcommands.ExitSuccess
	}
	if err := writeHTML(c.html, md); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Report written to %s\n", c.html)
	return subcommands.ExitSuccess
}

// historyMarkdown renders the time series report.
func historyMarkdown() (string, error) {
	series, status, err := timeseries.Open(cfg.series).Load()
	if status == timeseries.Corrupt {
		return "", err
	}
	return renderer.RenderHistory(ptfs.NewReport(series)), nil
}

func writeHTML(filename, md string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", filename, err)
	}
	if err := renderer.HTML(f, md); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
