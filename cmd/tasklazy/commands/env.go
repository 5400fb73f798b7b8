package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/keisuke70/tasklazy/internal/config"
	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/scheduling"
)

// env is the configuration and database shared by the data commands
type env struct {
	cfg   *config.Config
	db    *database.DB
	tasks *database.TaskRepository
	users *database.UserRepository
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &env{
		cfg:   cfg,
		db:    db,
		tasks: database.NewTaskRepository(db),
		users: database.NewUserRepository(db),
	}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}

// resolveUser accepts a user ID or an identity provider subject
func resolveUser(ctx context.Context, users database.UserRepositoryInterface, ref string) (*models.User, error) {
	if ref == "" {
		return nil, errors.New("--user is required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		user, err := users.GetByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, database.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
	}

	user, err := users.GetByProviderID(ctx, ref)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, fmt.Errorf("no user matches %q", ref)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// resolveDate parses value, defaulting to today in loc
func resolveDate(value string, loc *time.Location, now time.Time) (models.Date, error) {
	if value == "" {
		return models.DateOf(now.In(loc)), nil
	}
	date, err := models.ParseDate(value)
	if err != nil {
		return models.Date{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", value, err)
	}
	return date, nil
}

// scheduleOptions applies an optional --start-of-day override to base
func scheduleOptions(base scheduling.Options, startOfDay string) (scheduling.Options, error) {
	if startOfDay == "" {
		return base, nil
	}
	start, err := models.ParseClock(startOfDay)
	if err != nil || !start.InDay() {
		return base, fmt.Errorf("invalid --start-of-day %q (want HH:MM)", startOfDay)
	}
	base.StartOfDay = start
	return base, nil
}
