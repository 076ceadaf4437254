package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/matcher"
)

func newProgramsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List the programs in the curriculum index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := c.data(cmd.Context())
			if err != nil {
				return err
			}
			programs, err := data.Store.LoadProgramIndex(cmd.Context())
			if err != nil {
				return err
			}
			if c.format != formatText {
				return encode(cmd.OutOrStdout(), c.format, programs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFACULTY\tCONTENT")
			for _, p := range programs {
				content := "yes"
				if !p.HasContent {
					content = "coming soon"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Faculty, content)
			}
			return tw.Flush()
		},
	}
}

type matchOutput struct {
	Query      string              `json:"query"`
	Matched    bool                `json:"matched"`
	Program    *curriculum.Program `json:"program,omitempty"`
	Score      float64             `json:"score,omitempty"`
	Hits       int                 `json:"hits,omitempty"`
	MultiBonus bool                `json:"multi_bonus,omitempty"`
	Tokens     []string            `json:"tokens,omitempty"`
}

func newMatchCmd(c *cli) *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "match <text>",
		Short: "Resolve free text to the best-matching program",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.data(cmd.Context())
			if err != nil {
				return err
			}
			programs, err := data.Store.LoadProgramIndex(cmd.Context())
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			out := matchOutput{Query: query}
			if m, ok := matcher.BestProgram(query, programs); ok {
				out.Matched = true
				out.Program = &m.Program
				out.Score = m.Score
				out.Hits = m.Hits
				out.MultiBonus = m.MultiBonus
			}
			if explain {
				out.Tokens = matcher.Tokenize(query)
			}

			if c.format != formatText {
				return encode(cmd.OutOrStdout(), c.format, out)
			}
			w := cmd.OutOrStdout()
			if !out.Matched {
				fmt.Fprintf(w, "no program matches %q\n", query)
				return nil
			}
			fmt.Fprintf(w, "%s (%s)\n", out.Program.Name, out.Program.ID)
			if explain {
				fmt.Fprintf(w, "  tokens: %s\n  score: %.2f  hits: %d  multi-word bonus: %t\n",
					strings.Join(out.Tokens, " "), out.Score, out.Hits, out.MultiBonus)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "show tokens and score")
	return cmd
}
