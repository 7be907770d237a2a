package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/domain/ranking"
	"github.com/okian/trainboard/pkg/logger"
)

// rankRow is one leaderboard line.
type rankRow struct {
	Position             int    `json:"position" yaml:"position"`
	ID                   string `json:"id" yaml:"id"`
	Name                 string `json:"name" yaml:"name"`
	Rank                 string `json:"rank" yaml:"rank"`
	Total                int    `json:"total_score" yaml:"total_score"`
	AwardPoints          int    `json:"award_points" yaml:"award_points"`
	RecommendationPoints int    `json:"recommendation_points" yaml:"recommendation_points"`
	RankBoost            int    `json:"rank_boost" yaml:"rank_boost"`
	FirstTimeBoost       int    `json:"first_time_conductor_boost" yaml:"first_time_conductor_boost"`
	RecentPenalty        int    `json:"recent_conductor_penalty" yaml:"recent_conductor_penalty"`
	AboveAveragePenalty  int    `json:"above_average_penalty" yaml:"above_average_penalty"`
	ConductorCount       int    `json:"conductor_count" yaml:"conductor_count"`
	LastConducted        string `json:"last_conductor_date,omitempty" yaml:"last_conductor_date,omitempty"`
}

type rankReport struct {
	Date                  string    `json:"date" yaml:"date"`
	AverageConductorCount float64   `json:"average_conductor_count" yaml:"average_conductor_count"`
	Rankings              []rankRow `json:"rankings" yaml:"rankings"`
}

func toRankRow(e model.RankingEntry) rankRow {
	row := rankRow{
		Position:             e.Position,
		ID:                   e.Member.ID,
		Name:                 e.Member.Name,
		Rank:                 string(e.Member.Rank),
		Total:                e.TotalScore,
		AwardPoints:          e.AwardPoints,
		RecommendationPoints: e.RecommendationPoints,
		RankBoost:            e.RankBoost,
		FirstTimeBoost:       e.FirstTimeConductorBoost,
		RecentPenalty:        e.RecentConductorPenalty,
		AboveAveragePenalty:  e.AboveAveragePenalty,
		ConductorCount:       e.ConductorCount,
	}
	if e.LastConductorDate != nil {
		row.LastConducted = model.FormatDate(*e.LastConductorDate)
	}
	return row
}

// RankCmd creates the rank command.
func RankCmd(app *AppContext) *cobra.Command {
	var (
		date   string
		output string
		top    int
	)
	cmd := &cobra.Command{
		Use:   "rank ROSTER",
		Short: "Print the conductor leaderboard of a roster file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validOutput(output); err != nil {
				return err
			}
			r, ref, err := app.loadRoster(args[0], date)
			if err != nil {
				return err
			}
			snap := r.Snapshot
			res, err := ranking.ComputeRankings(snap.Members, snap.Settings, snap.PerMember(), ref)
			if err != nil {
				return fmt.Errorf("ranking failed: %w", err)
			}
			app.Logger.Debug(app.Ctx, "ranked roster",
				logger.String("file", args[0]),
				logger.String("date", model.FormatDate(ref)),
				logger.Int("members", len(res.Rankings)),
			)

			entries := res.Rankings
			if top > 0 {
				entries = res.Top(top)
			}
			report := rankReport{
				Date:                  model.FormatDate(ref),
				AverageConductorCount: res.AverageConductorCount,
				Rankings:              make([]rankRow, 0, len(entries)),
			}
			for _, e := range entries {
				report.Rankings = append(report.Rankings, toRankRow(e))
			}
			if output != outputTable {
				return encode(app.Out, output, report)
			}

			fmt.Fprintf(app.Out, "Leaderboard %s (average conductor count %.2f)\n\n", report.Date, report.AverageConductorCount)
			tw := newTable(app.Out)
			fmt.Fprintln(tw, "#\tNAME\tRANK\tTOTAL\tAWARDS\tRECS\tBOOST\tFIRST\tRECENT\tABOVE\tDUTIES")
			for _, row := range report.Rankings {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t-%d\t-%d\t%d\n",
					row.Position, row.Name, row.Rank, row.Total, row.AwardPoints, row.RecommendationPoints,
					row.RankBoost, row.FirstTimeBoost, row.RecentPenalty, row.AboveAveragePenalty, row.ConductorCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default: roster date, then today)")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table, yaml, json)")
	cmd.Flags().IntVar(&top, "top", 0, "Show only the first N entries")
	return cmd
}
