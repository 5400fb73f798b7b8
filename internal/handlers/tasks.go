package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/validation"
)

// TaskHandler handles task CRUD requests
type TaskHandler struct {
	tasks  database.TaskRepositoryInterface
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// RegisterRoutes registers task routes on a router already prefixed with /tasks
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateTask).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.GetTask).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.UpdateTask).Methods(http.MethodPatch)
	r.HandleFunc("/{id}", h.DeleteTask).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods(http.MethodPost)
}

// CreateTaskRequest is the body of a manual task add
type CreateTaskRequest struct {
	Name            string       `json:"name" validate:"required,max=200"`
	DurationMinutes *int         `json:"duration_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	DueDate         *models.Date `json:"due_date,omitempty"`
	ReminderAt      *time.Time   `json:"reminder_at,omitempty"`
	RepeatRule      string       `json:"repeat_rule,omitempty" validate:"omitempty,repeat_rule"`
}

// UpdateTaskRequest is the body of a task patch. due_date and reminder_at
// accept null to clear them.
type UpdateTaskRequest struct {
	Name            *string               `json:"name,omitempty" validate:"omitempty,max=200"`
	DurationMinutes *int                  `json:"duration_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	DueDate         optional[models.Date] `json:"due_date" validate:"-"`
	ReminderAt      optional[time.Time]   `json:"reminder_at" validate:"-"`
	RepeatRule      *string               `json:"repeat_rule,omitempty" validate:"omitempty,repeat_rule"`
	IsComplete      *bool                 `json:"is_complete,omitempty"`
}

// CompleteResponse reports the completion flag after a toggle
type CompleteResponse struct {
	ID         uuid.UUID `json:"id"`
	IsComplete bool      `json:"is_complete"`
}

// ListTasks lists every task of the authenticated user
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed_to_list_tasks", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask adds a task entered by hand
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := validation.SanitizeTaskName(req.Name)
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	task := &models.Task{
		ID:              uuid.New(),
		UserID:          user.ID,
		Name:            name,
		DurationMinutes: models.DefaultDurationMinutes,
		DueDate:         req.DueDate,
		ReminderAt:      req.ReminderAt,
		RepeatRule:      models.RepeatNone,
	}
	if req.DurationMinutes != nil {
		task.DurationMinutes = *req.DurationMinutes
	}
	if req.RepeatRule != "" {
		task.RepeatRule = models.RepeatRule(req.RepeatRule)
	}

	if err := h.tasks.Create(r.Context(), task); err != nil {
		h.logger.Error("failed_to_create_task", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask returns one task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, _, ok := h.ownedTask(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, user, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch, msg := req.toPatch()
	if msg != "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", msg)
		return
	}

	updated, err := h.tasks.Update(r.Context(), user.ID, task.ID, patch)
	if errors.Is(err, database.ErrTaskNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if err != nil {
		h.logger.Error("failed_to_update_task", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (req UpdateTaskRequest) toPatch() (database.TaskPatch, string) {
	var patch database.TaskPatch

	if req.Name != nil {
		name := validation.SanitizeTaskName(*req.Name)
		if name == "" {
			return patch, "Name cannot be empty after sanitization"
		}
		patch.Name = &name
	}
	patch.DurationMinutes = req.DurationMinutes
	if req.DueDate.Set {
		if req.DueDate.Null {
			patch.ClearDueDate = true
		} else {
			d := req.DueDate.Value
			patch.DueDate = &d
		}
	}
	if req.ReminderAt.Set {
		if req.ReminderAt.Null {
			patch.ClearReminder = true
		} else {
			at := req.ReminderAt.Value
			patch.ReminderAt = &at
		}
	}
	if req.RepeatRule != nil {
		rule := models.RepeatRule(*req.RepeatRule)
		patch.RepeatRule = &rule
	}
	patch.IsComplete = req.IsComplete
	return patch, ""
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, user, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), user.ID, task.ID); err != nil && !errors.Is(err, database.ErrTaskNotFound) {
		h.logger.Error("failed_to_delete_task", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask toggles the completion flag
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, user, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	complete, err := h.tasks.ToggleComplete(r.Context(), user.ID, task.ID)
	if errors.Is(err, database.ErrTaskNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	if err != nil {
		h.logger.Error("failed_to_toggle_task", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to complete task")
		return
	}

	respondJSON(w, http.StatusOK, CompleteResponse{ID: task.ID, IsComplete: complete})
}

// ownedTask loads the {id} task and checks that the caller owns it
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request) (*models.Task, *models.User, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return nil, nil, false
	}
	id, ok := uuidVar(w, r, "id")
	if !ok {
		return nil, nil, false
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if errors.Is(err, database.ErrTaskNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, nil, false
	}
	if err != nil {
		h.logger.Error("failed_to_get_task", zap.String("task_id", id.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return nil, nil, false
	}

	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil, nil, false
	}
	return task, user, true
}
