package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newWarmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Load every curriculum and term to check the program data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := c.data(cmd.Context())
			if err != nil {
				return err
			}
			report, err := data.Warm(cmd.Context())
			if err != nil {
				return err
			}
			if c.format != formatText {
				return encode(cmd.OutOrStdout(), c.format, report)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "programs:  %d (%d curricula loaded)\n", report.Programs, report.Curricula)
			fmt.Fprintf(w, "terms:     %s\n", strings.Join(report.Terms, ", "))
			fmt.Fprintf(w, "courses:   %d\n", report.Courses)
			if len(report.Unavailable) > 0 {
				fmt.Fprintf(w, "missing:   %s\n", strings.Join(report.Unavailable, ", "))
			}
			return nil
		},
	}
}
