// Command recur expands, describes and parses recurrence rules from the
// shell. Rules are given in their canonical string form ("FREQ=WEEKLY;
// BYDAY=MO,WE", optionally with a DTSTART line) or, for parse, as an
// English sentence ("every 2 weeks on monday and wednesday").
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-ical"
	"github.com/spf13/cobra"

	recurical "github.com/cadenzr/recur/ical"
	"github.com/cadenzr/recur/recurrence"
)

// series is the query surface shared by a single rule and a composed set.
type series interface {
	All() []time.Time
	AllWith(func(time.Time, int) bool) []time.Time
	Before(time.Time, bool) (time.Time, bool)
	After(time.Time, bool) (time.Time, bool)
	Between(time.Time, time.Time, bool) []time.Time
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "recur",
		Short: "Recurrence rule toolbox",
	}

	rootCmd.AddCommand(newExpandCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newParseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newExpandCmd() *cobra.Command {
	var (
		max       int
		afterStr  string
		beforeStr string
		icsPath   string
	)
	cmd := &cobra.Command{
		Use:   "expand [rule]",
		Short: "Print the occurrences of a rule or an iCalendar file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src series
			switch {
			case icsPath != "" && len(args) != 0:
				return fmt.Errorf("give either a rule argument or --ics, not both")
			case icsPath != "":
				var err error
				if src, err = seriesFromICS(icsPath); err != nil {
					return err
				}
			case len(args) == 1:
				rule, err := recurrence.ParseRule(args[0])
				if err != nil {
					return fmt.Errorf("parse rule: %w", err)
				}
				if err := rule.ZoneError(); err != nil {
					slog.Warn("zone degraded to UTC", "error", err)
				}
				src = rule
			default:
				return fmt.Errorf("a rule argument or --ics is required")
			}

			var occurrences []time.Time
			switch {
			case afterStr != "" && beforeStr != "":
				after, err := parseCLIDate(afterStr)
				if err != nil {
					return err
				}
				before, err := parseCLIDate(beforeStr)
				if err != nil {
					return err
				}
				occurrences = src.Between(after, before, true)
			case afterStr != "":
				after, err := parseCLIDate(afterStr)
				if err != nil {
					return err
				}
				if t, ok := src.After(after, true); ok {
					occurrences = []time.Time{t}
				}
			case beforeStr != "":
				before, err := parseCLIDate(beforeStr)
				if err != nil {
					return err
				}
				if t, ok := src.Before(before, true); ok {
					occurrences = []time.Time{t}
				}
			default:
				// Guard unbounded rules with the --max cap.
				occurrences = src.AllWith(func(t time.Time, i int) bool {
					return i < max
				})
			}

			for _, t := range occurrences {
				fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&max, "max", 30, "maximum occurrences to print for unbounded rules")
	cmd.Flags().StringVar(&afterStr, "after", "", "first moment of interest (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&beforeStr, "before", "", "last moment of interest (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&icsPath, "ics", "", "expand the first recurring component of an iCalendar file")
	return cmd
}

// seriesFromICS loads an iCalendar file and builds a set from its first
// recurring VEVENT or VTODO.
func seriesFromICS(path string) (series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cal, err := ical.NewDecoder(f).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent && child.Name != ical.CompToDo {
			continue
		}
		if child.Props.Get(ical.PropRecurrenceRule) == nil {
			continue
		}
		set, err := recurical.SetFromComponent(child, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return set, nil
	}
	return nil, fmt.Errorf("%s: no recurring component found", path)
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <rule>",
		Short: "Render a rule as an English sentence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := recurrence.ParseRule(args[0])
			if err != nil {
				return fmt.Errorf("parse rule: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rule.Text())
			return nil
		},
	}
}

func newParseCmd() *cobra.Command {
	var startStr string
	cmd := &cobra.Command{
		Use:   "parse <sentence>",
		Short: "Parse an English sentence into the canonical rule form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dtstart time.Time
			if startStr != "" {
				var err error
				if dtstart, err = parseCLIDate(startStr); err != nil {
					return err
				}
			}
			rule, err := recurrence.ParseText(args[0], dtstart)
			if err != nil {
				return fmt.Errorf("parse sentence: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rule.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&startStr, "start", "", "anchor moment (YYYY-MM-DD or RFC3339, default now)")
	return cmd
}

func parseCLIDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC3339)", s)
	}
	return t, nil
}
