package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/factory"
)

func newDiffCmd(opts *rootOptions) *cobra.Command {
	var (
		field, rounding string
		showFraction    bool
	)
	c := &cobra.Command{
		Use:   "diff FROM TO",
		Short: "Whole units of --field between FROM and TO (positive when FROM is later)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.factory()
			if err != nil {
				return err
			}
			in, err := f.Difference(factory.DifferenceJSON{
				From:     factory.Instant(args[0]),
				To:       factory.Instant(args[1]),
				Field:    field,
				Rounding: rounding,
			}, f.Default)
			if err != nil {
				return err
			}
			n, err := calendar.Difference(in.From, in.To, in.Field, in.Rounding)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			if showFraction {
				frac, err := calendar.Fraction(in.From, in.To, in.Field)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), frac.String())
			}
			return nil
		},
	}
	c.Flags().StringVarP(&field, "field", "f", "day", "Unit: year, month, day, hour, minute, second, millisecond")
	c.Flags().StringVarP(&rounding, "rounding", "r", "", "ceiling, up, down, floor, half_up, half_down, half_even, unnecessary")
	c.Flags().BoolVar(&showFraction, "fraction", false, "Also print the exact quotient")
	return c
}

func newTruncateCmd(opts *rootOptions) *cobra.Command {
	var (
		field string
		end   bool
	)
	c := &cobra.Command{
		Use:   "truncate VALUE",
		Short: "Start (or --end) of the --field period containing VALUE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.factory()
			if err != nil {
				return err
			}
			direction := "begin"
			if end {
				direction = "end"
			}
			in, err := f.Truncate(factory.TruncateJSON{Value: factory.Instant(args[0]), Field: field, Direction: direction}, f.Default)
			if err != nil {
				return err
			}
			v, err := calendar.Truncate(in.Value, in.Field, in.TowardStart)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	c.Flags().StringVarP(&field, "field", "f", "day", "Period: year, month, week, week_of_year, day, hour, minute, second")
	c.Flags().BoolVar(&end, "end", false, "Last millisecond of the period instead of the first")
	return c
}

func newSameCmd(opts *rootOptions) *cobra.Command {
	var field string
	c := &cobra.Command{
		Use:   "same A B",
		Short: "Whether A and B fall in the same --field period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := opts.factory()
			if err != nil {
				return err
			}
			in, err := f.Same(factory.SameJSON{A: factory.Instant(args[0]), B: factory.Instant(args[1]), Field: field}, f.Default)
			if err != nil {
				return err
			}
			same, err := calendar.SameBucket(in.A, in.B, in.Field, in.Config)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), same)
			return nil
		},
	}
	c.Flags().StringVarP(&field, "field", "f", "day", "Granularity")
	return c
}

func newUnitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units [FIELD]",
		Short: "Milliseconds per unit; all physical units when FIELD is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				field, err := calendar.ParseField(args[0])
				if err != nil {
					return err
				}
				ms, err := calendar.MillisecondsPerUnit(field)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ms)
				return nil
			}
			for _, field := range calendar.Fields() {
				if ms, err := calendar.MillisecondsPerUnit(field); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", field, ms)
				}
			}
			return nil
		},
	}
}
