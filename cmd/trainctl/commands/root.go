// Package commands implements the trainctl command tree: offline ranking and
// scheduling over roster files, and a load driver for a running board.
package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/trainboard/internal/domain/model"
	"github.com/okian/trainboard/internal/roster"
	"github.com/okian/trainboard/pkg/logger"
)

// AppContext holds what every subcommand needs.
type AppContext struct {
	Ctx    context.Context
	Logger logger.Logger
	Out    io.Writer

	// Now is the clock used when no date is given.
	Now func() time.Time

	logLevel  string
	logFormat string
}

// NewRootCmd builds the trainctl command tree.
func NewRootCmd() *cobra.Command {
	app := &AppContext{Ctx: context.Background(), Now: time.Now}

	rootCmd := &cobra.Command{
		Use:          "trainctl",
		Short:        "Conductor board tooling",
		Long:         `Rank members and plan train weeks from roster files, or drive a running trainboard server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Logs go to stderr so command output can be piped.
			if err := logger.InitWithOptions(
				logger.WithOutput(cmd.ErrOrStderr()),
				logger.WithLevel(app.logLevel),
				logger.WithFormat(app.logFormat),
			); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			app.Logger = logger.Named("trainctl")
			app.Out = cmd.OutOrStdout()
			if cmd.Context() != nil {
				app.Ctx = cmd.Context()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&app.logFormat, "log-format", logger.FormatText, "Log format (text, json)")

	rootCmd.AddCommand(RankCmd(app))
	rootCmd.AddCommand(ScheduleCmd(app))
	rootCmd.AddCommand(CheckCmd(app))
	rootCmd.AddCommand(LoadCmd(app))
	return rootCmd
}

// loadRoster reads path and resolves the reference date: the flag value,
// then the file's date, then today.
func (app *AppContext) loadRoster(path, dateFlag string) (*roster.Roster, time.Time, error) {
	r, err := roster.Load(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	switch {
	case dateFlag != "":
		d, err := model.ParseDate(dateFlag)
		if err != nil {
			return nil, time.Time{}, err
		}
		return r, d, nil
	case !r.Date.IsZero():
		return r, r.Date, nil
	default:
		return r, model.Day(app.Now()), nil
	}
}
