package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
)

func newConflictsCmd() *cobra.Command {
	var (
		apiURL   string
		exclude  string
		weekdays []string
		until    string
	)
	cmd := &cobra.Command{
		Use:   "conflicts <device> <start> <end>",
		Short: "Check a schedule against the backend",
		Long: `Asks the backend whether a capture on <device> from <start> to <end>
overlaps existing events. Times use the layout 2006-01-02T15:04 in the
configured timezone. With --weekdays and --until the schedule repeats.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.API.BaseURL = apiURL
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log)

			p, err := parseProposal(args, exclude, weekdays, until, loc)
			if err != nil {
				return err
			}

			backend, err := api.New(cfg.API.BaseURL,
				api.WithTimeout(cfg.API.Timeout),
				api.WithBasicAuth(cfg.API.Username, cfg.API.Password),
				api.WithLocation(loc),
				api.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			checker := schedule.NewChecker(backend, schedule.WithLocation(loc), schedule.WithLogger(logger))

			res := checker.Check(cmd.Context(), p)
			out := cmd.OutOrStdout()
			switch res.Outcome {
			case schedule.NoConflict:
				fmt.Fprintln(out, "No conflicts.")
			case schedule.Conflicts:
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "EVENT\tTITLE\tSTART\tEND")
				for _, c := range res.Conflicts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.EventID, c.Title,
						c.Start.In(loc).Format(forms.DateTimeLayout), c.End.In(loc).Format(forms.DateTimeLayout))
				}
				tw.Flush()
				return fmt.Errorf("%d conflicting events", len(res.Conflicts))
			default:
				logger.Debug("conflict check failed", logging.Err(res.Reason))
				return fmt.Errorf("conflict check failed: %w", res.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "admin backend base URL")
	cmd.Flags().StringVar(&exclude, "exclude", "", "ignore this event id, for rescheduling")
	cmd.Flags().StringSliceVar(&weekdays, "weekdays", nil, "repeat on these days, e.g. MO,WE")
	cmd.Flags().StringVar(&until, "until", "", "last day of the repetition, 2006-01-02")
	return cmd
}

func init() {
	rootCmd.AddCommand(newConflictsCmd())
}

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday, "MO": time.Monday, "TU": time.Tuesday, "WE": time.Wednesday,
	"TH": time.Thursday, "FR": time.Friday, "SA": time.Saturday,
}

func parseProposal(args []string, exclude string, weekdays []string, until string, loc *time.Location) (schedule.Proposal, error) {
	start, err := time.ParseInLocation(forms.DateTimeLayout, args[1], loc)
	if err != nil {
		return schedule.Proposal{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.ParseInLocation(forms.DateTimeLayout, args[2], loc)
	if err != nil {
		return schedule.Proposal{}, fmt.Errorf("invalid end: %w", err)
	}
	p := schedule.Proposal{
		Device:         args[0],
		Interval:       schedule.Interval{Start: start, End: end},
		ExcludeEventID: exclude,
	}
	if len(weekdays) == 0 && until == "" {
		return p, p.Validate()
	}

	r := &schedule.Repeat{}
	for _, code := range weekdays {
		d, ok := weekdayCodes[strings.ToUpper(strings.TrimSpace(code))]
		if !ok {
			return p, fmt.Errorf("unknown weekday %q", code)
		}
		r.Weekdays = append(r.Weekdays, d)
	}
	if r.Until, err = time.ParseInLocation(forms.DateLayout, until, loc); err != nil {
		return p, fmt.Errorf("invalid until: %w", err)
	}
	p.Repeat = r
	return p, p.Validate()
}
