package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/trainboard/internal/domain/messages"
	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/ranking"
	"github.com/okian/trainboard/internal/domain/schedule"
	"github.com/okian/trainboard/pkg/logger"
)

type dayRow struct {
	Date           string `json:"date" yaml:"date"`
	Day            string `json:"day" yaml:"day"`
	Conductor      string `json:"conductor,omitempty" yaml:"conductor,omitempty"`
	ConductorScore *int   `json:"conductor_score,omitempty" yaml:"conductor_score,omitempty"`
	Backup         string `json:"backup,omitempty" yaml:"backup,omitempty"`
	Missing        string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

type scheduleReport struct {
	WeekStart string              `json:"week_start" yaml:"week_start"`
	Days      []dayRow            `json:"days" yaml:"days"`
	Complete  bool                `json:"complete" yaml:"complete"`
	Message   string              `json:"message,omitempty" yaml:"message,omitempty"`
	Reminders []messages.Reminder `json:"reminders,omitempty" yaml:"reminders,omitempty"`
}

func refName(r *model.Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}

// ScheduleCmd creates the schedule command.
func ScheduleCmd(app *AppContext) *cobra.Command {
	var (
		start           string
		output          string
		conductorsFirst bool
		withMessage     bool
		withReminders   bool
	)
	cmd := &cobra.Command{
		Use:   "schedule ROSTER",
		Short: "Plan a train week from a roster file",
		Long: `Rank the roster as of the Monday of the chosen week and assign one
conductor and one R4/R5 backup per day. Nothing is written back to the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			r, ref, err := app.loadRoster(args[0], start)
			if err != nil {
				return err
			}
			monday := model.MondayOf(ref)
			snap := r.Snapshot

			board, err := ranking.ComputeRankings(snap.Members, snap.Settings, snap.PerMember(), monday)
			if err != nil {
				return fmt.Errorf("ranking failed: %w", err)
			}
			var opts []schedule.Option
			if conductorsFirst {
				opts = append(opts, schedule.WithConductorsFirst())
			}
			res, err := schedule.New(opts...).AutoScheduleWeek(board.Rankings, monday, nil, schedule.BackupPool(snap.Members))
			if err != nil {
				return fmt.Errorf("scheduling failed: %w", err)
			}
			app.Logger.Debug(app.Ctx, "scheduled week",
				logger.String("week", model.FormatDate(monday)),
				logger.Int("unfilledDays", len(res.UnfilledDays)),
			)

			report := buildScheduleReport(res)
			if withMessage {
				report.Message = messages.Weekly(snap.Settings.ScheduleMessageTemplate, monday, res.Assignments, board.Rankings)
			}
			if withReminders {
				report.Reminders = messages.ConductorReminders(res.Assignments)
			}
			if output != outputTable {
				return encode(app.Out, output, report)
			}
			return printSchedule(app, report)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Any day of the week to plan, YYYY-MM-DD (default: roster date, then today)")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table, yaml, json)")
	cmd.Flags().BoolVar(&conductorsFirst, "conductors-first", false, "Fill every conductor slot before any backup slot")
	cmd.Flags().BoolVar(&withMessage, "message", false, "Render the weekly announcement")
	cmd.Flags().BoolVar(&withReminders, "reminders", false, "Render conductor reminders")
	return cmd
}

func buildScheduleReport(res schedule.Result) scheduleReport {
	missing := make(map[string][]string, len(res.UnfilledDays))
	for _, d := range res.UnfilledDays {
		for _, slot := range d.Missing {
			key := model.FormatDate(d.Date)
			missing[key] = append(missing[key], string(slot))
		}
	}
	report := scheduleReport{
		WeekStart: model.FormatDate(res.WeekStart),
		Complete:  res.Complete(),
		Days:      make([]dayRow, 0, len(res.Assignments)),
	}
	for _, a := range res.Assignments {
		key := model.FormatDate(a.Date)
		report.Days = append(report.Days, dayRow{
			Date:           key,
			Day:            a.Date.Format("Monday"),
			Conductor:      refName(a.Conductor),
			ConductorScore: a.ConductorScore,
			Backup:         refName(a.Backup),
			Missing:        strings.Join(missing[key], ","),
		})
	}
	return report
}

func printSchedule(app *AppContext, report scheduleReport) error {
	fmt.Fprintf(app.Out, "Week of %s\n\n", report.WeekStart)
	tw := newTable(app.Out)
	fmt.Fprintln(tw, "DATE\tDAY\tCONDUCTOR\tSCORE\tBACKUP\tMISSING")
	for _, d := range report.Days {
		score := "-"
		if d.ConductorScore != nil {
			score = fmt.Sprint(*d.ConductorScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Date, d.Day, orDash(d.Conductor), score, orDash(d.Backup), orDash(d.Missing))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !report.Complete {
		fmt.Fprintln(app.Out, "\nWARNING: the week is only partially filled")
	}
	if report.Message != "" {
		fmt.Fprintf(app.Out, "\n%s\n", report.Message)
	}
	for _, r := range report.Reminders {
		fmt.Fprintf(app.Out, "\n%s\n", r.Message)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
