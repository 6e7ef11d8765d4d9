package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agronix/calendar"
)

func newEventsCmd(root *rootOptions) *cobra.Command {
	var (
		userID   string
		date     string
		upcoming int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List calendar events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date != "" && !calendar.IsDate(date) {
				return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
			}

			nix, err := root.open()
			if err != nil {
				return err
			}
			defer nix.Close()

			var events []calendar.Event
			if upcoming > 0 {
				events, err = nix.Upcoming(cmd.Context(), userID, upcoming)
			} else {
				events, err = nix.Events(cmd.Context(), userID, date)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, ev := range events {
				origin := ""
				if ev.CreatedBySystem {
					origin = " (auto)"
				}
				fmt.Fprintf(out, "%s %s %s  %s%s  [%s]\n", ev.Priority.Marker(), ev.Date, ev.Time, ev.Title, origin, ev.ID)
			}
			fmt.Fprintf(out, "Total: %d\n", len(events))

			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Only events on this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&upcoming, "upcoming", 0, "Events from today through N days ahead")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
