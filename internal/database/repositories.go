package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/keisuke70/tasklazy/internal/models"
)

// TaskRepositoryInterface is the task store used by handlers, workers and the dashboard
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	ListForDate(ctx context.Context, userID uuid.UUID, date models.Date) ([]models.Task, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch TaskPatch) (*models.Task, error)
	ToggleComplete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SaveSchedule(ctx context.Context, userID uuid.UUID, date models.Date, tasks []models.Task) error
	SetStartOverride(ctx context.Context, userID uuid.UUID, date models.Date, taskID uuid.UUID, start *models.ClockTime) error
}

// UserRepositoryInterface is the user store used by the auth middleware
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	UpdateTimeZone(ctx context.Context, id uuid.UUID, timeZone string) error
}

var (
	_ TaskRepositoryInterface = (*TaskRepository)(nil)
	_ UserRepositoryInterface = (*UserRepository)(nil)
)
