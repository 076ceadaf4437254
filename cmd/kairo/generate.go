package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/internal/ics"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
)

var errNotGenerated = errors.New("no schedule generated")

type generateFlags struct {
	program    string
	year       int
	term       string
	courses    []string
	noEarly    bool
	noLate     bool
	compact    bool
	maxGap     float64
	preferDays []string
	avoidDays  []string
	icsPath    string
	remote     remoteFlags
}

func (f *generateFlags) preferences(message string) (planner.TimePreference, error) {
	flagged := planner.TimePreference{
		NoEarlyClasses: f.noEarly,
		NoLateClasses:  f.noLate,
		PreferCompact:  f.compact,
		MaxGapHours:    f.maxGap,
		PreferredDays:  f.preferDays,
		AvoidDays:      f.avoidDays,
	}
	prefs := flagged.Merge(planner.ParsePreferences(message))
	return prefs, prefs.Validate()
}

func newGenerateCmd(c *cli) *cobra.Command {
	f := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate [message]",
		Short: "Generate a conflict-free schedule",
		Long: `Generate a conflict-free schedule from a free-text request such as
"second year computer science fall, no classes before 10am", or from
--program/--year/--term or --course flags.`,
		Example: `  kairo generate "2nd year software engineering winter"
  kairo generate --program "Computer Science" --year 2 --term Fall --no-early
  kairo generate --course "CSI 2110" --course "MAT 1341" --term "Fall 2025" --ics fall.ics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			message := strings.Join(args, " ")
			if message == "" && f.program == "" && len(f.courses) == 0 {
				return errors.New("give a message, --program or --course")
			}

			prefs, err := f.preferences(message)
			if err != nil {
				return err
			}

			data, err := c.data(ctx)
			if err != nil {
				return err
			}
			remote := f.remote.client(c)
			chain, err := c.chain(ctx, data, remote)
			if err != nil {
				return err
			}
			var opts []planner.Option
			if remote != nil {
				opts = append(opts, planner.WithBackend(remote))
			}
			gen := planner.NewGenerator(chain, data.Store, data.Catalog, c.logger, opts...)

			res, err := gen.Generate(ctx, planner.NewGenerationSession(), planner.Request{
				Message:     message,
				Program:     f.program,
				Year:        f.year,
				Term:        f.term,
				Courses:     f.courses,
				Preferences: prefs,
			})
			if err != nil {
				c.logger.Debug("generation failed", zap.Error(err))
			}

			if c.format != formatText {
				if err := encode(cmd.OutOrStdout(), c.format, res); err != nil {
					return err
				}
			} else {
				writeSchedule(cmd.OutOrStdout(), res)
			}

			if !res.Success || len(res.Events) == 0 {
				return errNotGenerated
			}
			if f.icsPath != "" {
				if err := writeICS(f.icsPath, res.Events); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d events to %s\n", len(res.Events), f.icsPath)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.program, "program", "", "program name or code")
	flags.IntVar(&f.year, "year", 0, "year of study (1-4)")
	flags.StringVar(&f.term, "term", "", `term, e.g. "Fall" or "Winter 2026"`)
	flags.StringArrayVar(&f.courses, "course", nil, "course code to schedule (repeatable)")
	flags.BoolVar(&f.noEarly, "no-early", false, "avoid classes before 9:00")
	flags.BoolVar(&f.noLate, "no-late", false, "avoid classes ending after 18:00")
	flags.BoolVar(&f.compact, "compact", false, "prefer fewer gaps between classes")
	flags.Float64Var(&f.maxGap, "max-gap", 0, "longest gap in hours between classes on a day")
	flags.StringSliceVar(&f.preferDays, "prefer-days", nil, "days to prefer, e.g. mon,wed")
	flags.StringSliceVar(&f.avoidDays, "avoid-days", nil, "days to keep free, e.g. fri")
	flags.StringVar(&f.icsPath, "ics", "", "also write the schedule to this .ics file")
	f.remote.register(cmd)
	return cmd
}

func writeICS(path string, events []planner.ScheduleEvent) error {
	out := make([]ics.Event, 0, len(events))
	for _, e := range events {
		out = append(out, ics.Event{
			Title:       e.Title,
			Description: e.Description,
			Location:    e.Location,
			Professor:   e.Professor,
			DayOfWeek:   e.DayOfWeek,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
			Recurrence:  e.RecurrencePattern,
			Theme:       e.Theme,
		})
	}
	body := ics.Export(out, ics.ExportOptions{
		CalendarName:    "Kairo Schedule",
		Now:             time.Now(),
		SkipReadingWeek: true,
	})
	return os.WriteFile(path, []byte(body), 0o644)
}
