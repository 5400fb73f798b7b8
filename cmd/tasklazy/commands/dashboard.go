package commands

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/logger"
	"github.com/keisuke70/tasklazy/internal/tui"
)

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd() *cobra.Command {
	var (
		userRef       string
		dateValue     string
		startOfDay    string
		logFile       string
		rowsPerMinute float64
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Long:  "Select tasks with space and drag timeline blocks with the mouse to reschedule them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			zapLogger := zap.NewNop()
			if logFile != "" {
				zapLogger, err = logger.NewFileLogger(logFile, false)
				if err != nil {
					return err
				}
				defer func() { _ = logger.Sync(zapLogger) }()
			}

			user, err := resolveUser(ctx, e.users, userRef)
			if err != nil {
				return err
			}
			loc := user.Location()
			date, err := resolveDate(dateValue, loc, time.Now())
			if err != nil {
				return err
			}
			opts, err := scheduleOptions(e.cfg.Schedule, startOfDay)
			if err != nil {
				return err
			}
			opts.PixelsPerMinute = rowsPerMinute

			source := fixedEventSource(ctx, e.cfg.GoogleCredentialsFile, e.cfg.GoogleTokenFile, e.cfg.GoogleCalendarID, cmd.ErrOrStderr())

			model := tui.New(ctx, e.tasks, source, tui.Config{
				UserID:   user.ID,
				Location: loc,
				Date:     date,
				Options:  opts,
			}, zapLogger)
			return tui.Run(ctx, model)
		},
	}

	cmd.Flags().StringVar(&userRef, "user", "", "User ID or identity provider subject (required)")
	cmd.Flags().StringVar(&dateValue, "date", "", "Date as YYYY-MM-DD (default: today in the user's time zone)")
	cmd.Flags().StringVar(&startOfDay, "start-of-day", "", "Override the anchor of the first block (HH:MM)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file")
	cmd.Flags().Float64Var(&rowsPerMinute, "rows-per-minute", tui.DefaultRowsPerMinute, "Timeline scale in terminal rows per minute")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
