package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agronix/crop"
)

func newCropCmd(root *rootOptions) *cobra.Command {
	var (
		userID  string
		refresh bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Show the crop report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			nix, err := root.open()
			if err != nil {
				return err
			}
			defer nix.Close()

			report, err := nix.CropReport(cmd.Context(), userID, refresh)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "Updated: %s\n\n", report.Snapshot.UpdatedAt.Format(time.DateTime))
			for _, p := range crop.Parameters() {
				v, _ := report.Snapshot.Value(p)
				line := fmt.Sprintf("%-18s %8.2f %-5s %-8s", p.Label(), v, p.Unit(), report.Status[p])
				if r, ok := report.Ranges[p]; ok {
					line += fmt.Sprintf(" [%g-%g]", r.Min, r.Max)
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "%-18s %s\n", "Pest risk", report.Snapshot.PestRisk)

			if len(report.Critical) > 0 {
				fmt.Fprintf(out, "\n🚨 Critical: %v\n", report.Critical)
			}

			fmt.Fprintln(out, "\nAlerts:")
			if len(report.Alerts) == 0 {
				fmt.Fprintln(out, "  ✅ All conditions are normal")
			}
			for i, a := range report.Alerts {
				fmt.Fprintf(out, "  %s -> %s\n", a, report.Recommendations[i])
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Discard the cached snapshot first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
