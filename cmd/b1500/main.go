package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fpawel/b1500/internal/config"
	"github.com/fpawel/b1500/internal/pkg"
	"github.com/powerman/structlog"
	"github.com/spf13/cobra"
)

var (
	GitCommit string
	BuildDate string
)

var log = structlog.New(structlog.KeyUnit, "main")

type options struct {
	config string
	debug  bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts := new(options)
	cmd := newRootCmd(opts)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.PrintErr(err)
		if opts.debug {
			pkg.PrintMerryStacktrace(log, err)
		}
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "b1500",
		Short:         "Keysight B1500 module drivers",
		Version:       GitCommit + " " + BuildDate,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			pkg.InitLog(opts.debug)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", config.Filename, "setup file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log every command")
	cmd.AddCommand(
		newRangesCmd(),
		newCheckCmd(opts),
		newRunCmd(opts),
		newJournalCmd(opts),
	)
	return cmd
}
