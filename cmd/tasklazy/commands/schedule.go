package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/scheduling"
	"github.com/keisuke70/tasklazy/internal/services/calendar"
)

// NewScheduleCmd creates the schedule command
func NewScheduleCmd() *cobra.Command {
	var (
		userRef    string
		dateValue  string
		startOfDay string
		asJSON     bool
		generate   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print a user's day",
		Long:  "Lay out the selected tasks of a date next to its fixed calendar events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			user, err := resolveUser(ctx, e.users, userRef)
			if err != nil {
				return err
			}
			date, err := resolveDate(dateValue, user.Location(), time.Now())
			if err != nil {
				return err
			}
			opts, err := scheduleOptions(e.cfg.Schedule, startOfDay)
			if err != nil {
				return err
			}

			tasks, err := e.tasks.ListForDate(ctx, user.ID, date)
			if err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}

			if generate {
				if err := scheduling.RequireSelection(tasks); err != nil {
					return err
				}
			}

			source := fixedEventSource(ctx, e.cfg.GoogleCredentialsFile, e.cfg.GoogleTokenFile, e.cfg.GoogleCalendarID, cmd.ErrOrStderr())
			day := buildDay(ctx, source, date, user.Location(), tasks, opts)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if generate {
					return enc.Encode(map[string]any{"date": date, "blocks": day.Blocks, "total_minutes": day.TotalMinutes})
				}
				return enc.Encode(day)
			}
			printDay(out, date, day)
			return nil
		},
	}

	cmd.Flags().StringVar(&userRef, "user", "", "User ID or identity provider subject (required)")
	cmd.Flags().StringVar(&dateValue, "date", "", "Date as YYYY-MM-DD (default: today in the user's time zone)")
	cmd.Flags().StringVar(&startOfDay, "start-of-day", "", "Override the anchor of the first block (HH:MM)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the schedule as JSON")
	cmd.Flags().BoolVar(&generate, "generate", false, "Print only the final plan; fails when nothing is selected")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// fixedEventSource falls back to no fixed events when the calendar cannot be opened
func fixedEventSource(ctx context.Context, credentialsFile, tokenFile, calendarID string, warn io.Writer) calendar.FixedEventSource {
	source, err := calendar.NewSource(ctx, credentialsFile, tokenFile, calendarID, zap.NewNop())
	if err != nil {
		fmt.Fprintf(warn, "Warning: calendar disabled: %v\n", err)
		return calendar.NoopSource{}
	}
	return source
}

func buildDay(ctx context.Context, source calendar.FixedEventSource, date models.Date, loc *time.Location, tasks []models.Task, opts scheduling.Options) scheduling.DaySchedule {
	fixed, err := source.ListFixedEvents(ctx, date, loc)
	day := scheduling.BuildDay(tasks, fixed, opts)
	if err != nil {
		day.Warnings = append(day.Warnings, "fixed events unavailable")
	}
	return day
}

// printDay writes the day's timeline rows in start order
func printDay(w io.Writer, date models.Date, day scheduling.DaySchedule) {
	fmt.Fprintf(w, "Schedule for %s (first block at %s)\n", date, day.StartOfDay)

	rows := append([]scheduling.TimelineRow(nil), day.Rows...)
	sortRows(rows)

	if len(rows) == 0 {
		fmt.Fprintln(w, "  nothing scheduled")
	}
	for _, row := range rows {
		marker := "   "
		if row.Fixed {
			marker = " ~ "
		} else if row.Priority > 0 {
			marker = fmt.Sprintf("%2d ", row.Priority)
		}
		fmt.Fprintf(w, "  %s-%s %s%s\n", row.StartTime, row.EndTime, marker, row.Label)
	}

	fmt.Fprintf(w, "Total: %d tasks, %d minutes\n", len(day.Blocks), day.TotalMinutes)
	for _, warning := range day.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}

// sortRows orders by start time, fixed events first on ties
func sortRows(rows []scheduling.TimelineRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StartTime != rows[j].StartTime {
			return rows[i].StartTime < rows[j].StartTime
		}
		return rows[i].Fixed && !rows[j].Fixed
	})
}
