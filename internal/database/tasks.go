package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keisuke70/tasklazy/internal/models"
)

// TaskRepository handles task and per-date schedule persistence
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `t.id, t.user_id, t.name, t.duration_minutes, t.due_date, t.reminder_at,
		t.repeat_rule, t.is_complete, t.created_at, t.updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads taskColumns, followed by priority and start override when
// withSchedule is set
func scanTask(row rowScanner, withSchedule bool) (*models.Task, error) {
	task := &models.Task{}
	var dueDate sql.Null[models.Date]
	var reminderAt sql.NullTime
	var priority, startOverride sql.NullInt64

	dest := []any{
		&task.ID,
		&task.UserID,
		&task.Name,
		&task.DurationMinutes,
		&dueDate,
		&reminderAt,
		&task.RepeatRule,
		&task.IsComplete,
		&task.CreatedAt,
		&task.UpdatedAt,
	}
	if withSchedule {
		dest = append(dest, &priority, &startOverride)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if dueDate.Valid {
		task.DueDate = &dueDate.V
	}
	if reminderAt.Valid {
		task.ReminderAt = &reminderAt.Time
	}
	if priority.Valid {
		task.Priority = models.IntPtr(int(priority.Int64))
	}
	if startOverride.Valid {
		start := models.ClockTime(startOverride.Int64)
		task.StartOverride = &start
	}
	return task, nil
}

// Create inserts a new task. Priority and start override are ignored; they
// are set per date through SaveSchedule.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, name, duration_minutes, due_date, reminder_at, repeat_rule, is_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.RepeatRule == "" {
		task.RepeatRule = models.RepeatNone
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Name,
		task.DurationMinutes,
		nullableDate(task.DueDate),
		task.ReminderAt,
		task.RepeatRule,
		task.IsComplete,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID without schedule data
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListByUser returns every task the user owns, oldest first
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.user_id = $1 ORDER BY t.created_at, t.id`

	return r.queryTasks(ctx, false, query, userID)
}

// ListForDate returns every task the user owns, with the priority and start
// override recorded for date
func (r *TaskRepository) ListForDate(ctx context.Context, userID uuid.UUID, date models.Date) ([]models.Task, error) {
	query := `
		SELECT ` + taskColumns + `, s.priority, s.start_override
		FROM tasks t
		LEFT JOIN task_schedules s ON s.task_id = t.id AND s.schedule_date = $2
		WHERE t.user_id = $1
		ORDER BY t.created_at, t.id
	`

	return r.queryTasks(ctx, true, query, userID, date)
}

func (r *TaskRepository) queryTasks(ctx context.Context, withSchedule bool, query string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows, withSchedule)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// TaskPatch lists the fields of a task to change. Nil fields are left as-is.
type TaskPatch struct {
	Name            *string
	DurationMinutes *int
	DueDate         *models.Date
	ClearDueDate    bool
	ReminderAt      *time.Time
	ClearReminder   bool
	RepeatRule      *models.RepeatRule
	IsComplete      *bool
}

// IsEmpty reports whether the patch changes nothing
func (p TaskPatch) IsEmpty() bool {
	set, _ := p.assignments()
	return len(set) == 0
}

// assignments returns the SET fragments (without placeholders) and their values
func (p TaskPatch) assignments() ([]string, []any) {
	var cols []string
	var args []any

	if p.Name != nil {
		cols = append(cols, "name")
		args = append(args, *p.Name)
	}
	if p.DurationMinutes != nil {
		cols = append(cols, "duration_minutes")
		args = append(args, *p.DurationMinutes)
	}
	switch {
	case p.ClearDueDate:
		cols = append(cols, "due_date")
		args = append(args, nil)
	case p.DueDate != nil:
		cols = append(cols, "due_date")
		args = append(args, p.DueDate.String())
	}
	switch {
	case p.ClearReminder:
		cols = append(cols, "reminder_at")
		args = append(args, nil)
	case p.ReminderAt != nil:
		cols = append(cols, "reminder_at")
		args = append(args, *p.ReminderAt)
	}
	if p.RepeatRule != nil {
		cols = append(cols, "repeat_rule")
		args = append(args, string(*p.RepeatRule))
	}
	if p.IsComplete != nil {
		cols = append(cols, "is_complete")
		args = append(args, *p.IsComplete)
	}
	return cols, args
}

// buildUpdate renders the UPDATE statement for patch. The id and user id
// take the first two placeholders.
func buildUpdate(patch TaskPatch) (string, []any) {
	cols, args := patch.assignments()
	set := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		set = append(set, fmt.Sprintf("%s = $%d", col, i+3))
	}
	set = append(set, "updated_at = now()")

	query := `UPDATE tasks t SET ` + strings.Join(set, ", ") +
		` WHERE t.id = $1 AND t.user_id = $2 RETURNING ` + taskColumns
	return query, args
}

// Update applies patch to the user's task and returns the stored result
func (r *TaskRepository) Update(ctx context.Context, userID, id uuid.UUID, patch TaskPatch) (*models.Task, error) {
	if patch.IsEmpty() {
		return r.getOwned(ctx, userID, id)
	}

	query, fields := buildUpdate(patch)
	args := append([]any{id, userID}, fields...)

	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) getOwned(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	task, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, nil
}

// ToggleComplete flips the completion flag and returns the new value
func (r *TaskRepository) ToggleComplete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tasks SET is_complete = NOT is_complete, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING is_complete
	`

	var complete bool
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&complete)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle task completion: %w", err)
	}
	return complete, nil
}

// Delete removes the user's task and its schedule entries
func (r *TaskRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// SaveSchedule replaces the user's selection for date with the priorities
// and start overrides carried by tasks. Tasks the user does not own are
// skipped.
func (r *TaskRepository) SaveSchedule(ctx context.Context, userID uuid.UUID, date models.Date, tasks []models.Task) error {
	insert := `
		INSERT INTO task_schedules (task_id, user_id, schedule_date, priority, start_override)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND user_id = $2)
	`

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM task_schedules WHERE user_id = $1 AND schedule_date = $2`,
			userID, date,
		); err != nil {
			return fmt.Errorf("failed to clear schedule: %w", err)
		}

		for _, task := range tasks {
			if task.Priority == nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, insert,
				task.ID, userID, date, *task.Priority, nullableClock(task.StartOverride),
			); err != nil {
				return fmt.Errorf("failed to save schedule entry: %w", err)
			}
		}
		return nil
	})
}

// SetStartOverride records (or with nil, clears) a manual start for a task
// scheduled on date
func (r *TaskRepository) SetStartOverride(ctx context.Context, userID uuid.UUID, date models.Date, taskID uuid.UUID, start *models.ClockTime) error {
	query := `
		UPDATE task_schedules SET start_override = $4
		WHERE task_id = $1 AND user_id = $2 AND schedule_date = $3
	`

	result, err := r.db.ExecContext(ctx, query, taskID, userID, date, nullableClock(start))
	if err != nil {
		return fmt.Errorf("failed to set start override: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s not scheduled on %s", ErrTaskNotFound, taskID, date)
	}
	return nil
}

func nullableDate(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableClock(c *models.ClockTime) any {
	if c == nil {
		return nil
	}
	return int64(*c)
}
