package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ansel1/merry"
	"github.com/fpawel/b1500/internal/b1500"
	"github.com/fpawel/b1500/internal/config"
	"github.com/spf13/cobra"
)

func newRangesCmd() *cobra.Command {
	var (
		model string
		asu   bool
	)
	cmd := &cobra.Command{
		Use:   "ranges",
		Short: "Print the current ranges valid for a module model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			smu, err := b1500.NewModule(b1500.NewKeysightB1500("", nil), model, "", b1500.MinSlot)
			if err != nil {
				return err
			}
			if m, ok := smu.(b1500.AsuModule); ok {
				m.SetAsuPresent(asu)
			} else if asu {
				return merry.Errorf("%s has no ASU input", model)
			}
			printRanges(cmd.OutOrStdout(), smu)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "B1511B", "module model: B1511B or B1517A")
	cmd.Flags().BoolVar(&asu, "asu", false, "ASU is connected")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	var (
		slot            int
		measure, output string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a current range against a module of the setup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if measure == "" && output == "" {
				return merry.New("--measure or --output must be set")
			}
			c, err := config.LoadOrDefault(opts.config)
			if err != nil {
				return err
			}
			mf, err := c.Build(nil)
			if err != nil {
				return err
			}
			smu, err := mf.SMU(slot)
			if err != nil {
				return err
			}
			if measure != "" {
				r, err := b1500.ParseIMeasRange(measure)
				if err != nil {
					return err
				}
				if err := smu.CheckIMeasureRange(r); err != nil {
					return err
				}
			}
			if output != "" {
				r, err := b1500.ParseIOutputRange(output)
				if err != nil {
					return err
				}
				if err := smu.CheckIOutputRange(r); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", smu.Name())
			return err
		},
	}
	cmd.Flags().IntVar(&slot, "slot", b1500.MinSlot, "module slot")
	cmd.Flags().StringVar(&measure, "measure", "", "measurement range, e.g. FIX_10nA")
	cmd.Flags().StringVar(&output, "output", "", "output range, e.g. MIN_1uA")
	return cmd
}

func printRanges(w io.Writer, smu b1500.SMU) {
	_, _ = fmt.Fprintf(w, "%s slot %d\n", smu.Model(), smu.Slot())
	_, _ = fmt.Fprintf(w, "measure: %s\n", strings.Join(b1500.IMeasRangeNames(smu.ValidIMeasureRanges()), " "))
	_, _ = fmt.Fprintf(w, "output:  %s\n", strings.Join(b1500.IOutputRangeNames(smu.ValidIOutputRanges()), " "))
}
