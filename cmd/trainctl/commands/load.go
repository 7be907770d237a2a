package commands

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/trainboard/internal/testevents"
)

// LoadCmd creates the load command.
func LoadCmd(app *AppContext) *cobra.Command {
	cfg := testevents.Config{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit generated events to a running server and verify the leaderboard",
		Long: `Generate award and recommendation events for the server's members, post
them concurrently, wait until the workers applied them and check that the
leaderboard agrees with the per-member scores.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.NumEvents <= 0 {
				return fmt.Errorf("--events must be positive")
			}
			stats, err := testevents.Run(app.Ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "submitted %d events (%d accepted, %d duplicate, %d failed) for %d members in %s\n",
				stats.EventsSubmitted, stats.EventsSuccessful, stats.EventsDuplicate, stats.EventsFailed,
				stats.Members, stats.Duration.Round(time.Millisecond))
			fmt.Fprintf(app.Out, "leaderboard verified: %d entries, %d member scores\n", stats.LeaderboardEntries, stats.ScoresRetrieved)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	cmd.Flags().IntVar(&cfg.NumEvents, "events", 1000, "Number of events to generate and submit")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Number of concurrent submitters")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	cmd.Flags().IntVar(&cfg.DuplicateEvery, "duplicate-every", 0, "Resubmit every n-th event id")
	cmd.Flags().DurationVar(&cfg.DrainTimeout, "drain-timeout", 2*time.Minute, "How long to wait for the workers")
	cmd.Flags().StringVar(&cfg.OutputFile, "output", "", "Write the generated events to this JSON file")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "Log rejected events")
	return cmd
}
