// Command ptfs records the quotes of a portfolio in a time series.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/ptfs/cmd"
	"github.com/etnz/ptfs/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	cmd.Register(subcommands.DefaultCommander)

	// Shell completion, it exits when the shell asked for completions.
	completion().Complete("ptfs")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

func completion() *complete.Command {
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"holdings": predict.Files("*"),
			"series":   predict.Files("*.jsonl"),
			"source":   predict.Set(cmd.Sources),
			"chrome":   predict.Files("*"),
			"timeout":  predict.Something,
			"v":        predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"snapshot": {Flags: map[string]complete.Predictor{"print": predict.Nothing}},
			"validate": {Args: predict.Something},
			"history":  {Flags: map[string]complete.Predictor{"html": predict.Files("*.html")}},
			"schedule": {Flags: map[string]complete.Predictor{"cron": predict.Something, "now": predict.Nothing}},
			"topic": {
				Flags: map[string]complete.Predictor{"list": predict.Nothing, "html": predict.Files("*.html")},
				Args:  predict.Set(append([]string{"readme", "*"}, docs.Topics()...)),
			},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
}
