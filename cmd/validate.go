package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/ptfs"
	"github.com/google/subcommands"
)

type validateCmd struct{}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "validate ISINs or the holdings file" }
func (*validateCmd) Usage() string {
	return `ptfs validate [isin...]

  Validates each ISIN given as argument. Without arguments, validates the
  holdings file: every identifier, every asset class, and that no identifier
  is held in two asset classes.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {}

func (c *validateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := validate(os.Stdout, f.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

var errInvalid = errors.New("invalid identifiers")

// validate writes a report about codes, or about the holdings file if there are none.
func validate(w io.Writer, codes []string) error {
	if len(codes) > 0 {
		invalid := 0
		for _, code := range codes {
			if err := ptfs.ValidateISIN(code); err != nil {
				fmt.Fprintf(w, "%s\tinvalid: %v\n", code, err)
				invalid++
				continue
			}
			fmt.Fprintf(w, "%s\tvalid\n", code)
		}
		if invalid > 0 {
			return fmt.Errorf("%w: %d of %d", errInvalid, invalid, len(codes))
		}
		return nil
	}

	holdings, err := ptfs.ReadHoldingsFile(cfg.holdings)
	if err != nil {
		return err
	}
	p, err := ptfs.Build(holdings)
	if err != nil {
		return fmt.Errorf("invalid portfolio in %q: %w", cfg.holdings, err)
	}
	fmt.Fprintf(w, "%s: %d identifiers\n", cfg.holdings, p.Len())
	for _, class := range p.Classes() {
		fmt.Fprintf(w, "  %s\t%d\n", class, len(p.ClassHoldings(class)))
	}
	return nil
}
