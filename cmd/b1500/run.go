package main

import (
	"fmt"
	"time"

	"github.com/ansel1/merry"
	"github.com/fpawel/b1500/internal/b1500"
	"github.com/fpawel/b1500/internal/config"
	"github.com/fpawel/b1500/internal/journal"
	"github.com/fpawel/b1500/internal/script"
	"github.com/fpawel/b1500/internal/transport"
	"github.com/fpawel/comm"
	"github.com/powerman/structlog"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run script.lua",
		Short: "Connect to the mainframe and run a Lua script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := config.Load(opts.config)
			if err != nil {
				return err
			}
			comm.SetEnableLog(c.LogCommands || opts.debug)
			if c.LogCommands {
				structlog.DefaultLogger.SetLogLevel(structlog.DBG)
			}
			conn, err := transport.Dial(ctx, c.Mainframe.Addr, c.Mainframe.CommConfig())
			if err != nil {
				return err
			}
			defer log.ErrIfFail(conn.Close)

			var mfOpts []b1500.Option
			if c.Journal != "" {
				j, err := journal.Open(c.JournalFilename())
				if err != nil {
					return err
				}
				defer log.ErrIfFail(j.Close)
				mfOpts = append(mfOpts, b1500.WithRecorder(j))
			}
			mf, err := c.Build(conn, mfOpts...)
			if err != nil {
				return err
			}
			idn, err := mf.IDN(ctx)
			if err != nil {
				return err
			}
			log.Info("connected", "addr", c.Mainframe.Addr, "idn", idn)
			if err := c.Apply(ctx, mf); err != nil {
				return err
			}
			return script.RunFile(ctx, mf, args[0])
		},
	}
}

func newJournalCmd(opts *options) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List the days of the command journal or the commands of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.LoadOrDefault(opts.config)
			if err != nil {
				return err
			}
			if c.Journal == "" {
				return merry.New("journal is not set in the setup file")
			}
			j, err := journal.Open(c.JournalFilename())
			if err != nil {
				return err
			}
			defer log.ErrIfFail(j.Close)
			w := cmd.OutOrStdout()

			if day == "" {
				days, err := j.ListDays()
				if err != nil {
					return err
				}
				for _, d := range days {
					_, _ = fmt.Fprintln(w, d.Format("2006-01-02"))
				}
				return nil
			}
			t, err := time.ParseInLocation("2006-01-02", day, time.Local)
			if err != nil {
				return err
			}
			xs, err := j.EntriesOfDay(t)
			if err != nil {
				return err
			}
			for _, e := range xs {
				_, _ = fmt.Fprintf(w, "%s %s %s", e.CreatedAt.Format("15:04:05.000"), e.Instrument, e.Command)
				if e.Reply != "" {
					_, _ = fmt.Fprintf(w, " -> %s", e.Reply)
				}
				if e.Error != "" {
					_, _ = fmt.Fprintf(w, " ERR %s", e.Error)
				}
				_, _ = fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day to list, YYYY-MM-DD")
	return cmd
}
