package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CheckCmd creates the check command.
func CheckCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check ROSTER...",
		Short: "Validate roster files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				r, _, err := app.loadRoster(path, "")
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				s := r.Snapshot
				fmt.Fprintf(app.Out, "%s: ok (%d members, %d awards, %d recommendations, %d assignments)\n",
					path, len(s.Members), len(s.Awards), len(s.Recommendations), len(s.Assignments))
			}
			return nil
		},
	}
}
