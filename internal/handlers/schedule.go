package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/scheduling"
	"github.com/keisuke70/tasklazy/internal/services/calendar"
)

// ScheduleHandler serves the per-date timeline and its edits
type ScheduleHandler struct {
	tasks    database.TaskRepositoryInterface
	calendar calendar.FixedEventSource
	options  scheduling.Options
	logger   *zap.Logger
}

// NewScheduleHandler creates a new schedule handler. A nil source disables fixed events.
func NewScheduleHandler(tasks database.TaskRepositoryInterface, source calendar.FixedEventSource, options scheduling.Options, logger *zap.Logger) *ScheduleHandler {
	if source == nil {
		source = calendar.NoopSource{}
	}
	return &ScheduleHandler{tasks: tasks, calendar: source, options: options, logger: logger}
}

// RegisterRoutes registers schedule routes on a router already prefixed with /schedule
func (h *ScheduleHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{date}", h.GetSchedule).Methods(http.MethodGet)
	r.HandleFunc("/{date}/selection", h.SetSelection).Methods(http.MethodPost)
	r.HandleFunc("/{date}/moves", h.MoveBlock).Methods(http.MethodPost)
	r.HandleFunc("/{date}/moves/{task_id}", h.ClearMove).Methods(http.MethodDelete)
	r.HandleFunc("/{date}/generate", h.Generate).Methods(http.MethodPost)
}

// SelectionRequest selects or deselects a task for the date
type SelectionRequest struct {
	TaskID   uuid.UUID `json:"task_id" validate:"required"`
	Selected *bool     `json:"selected" validate:"required"`
}

// MoveRequest drags a block by a vertical pixel delta
type MoveRequest struct {
	TaskID      uuid.UUID `json:"task_id" validate:"required"`
	DeltaPixels float64   `json:"delta_pixels"`
}

// GeneratedSchedule is the final ordered plan for a date
type GeneratedSchedule struct {
	Date         models.Date                 `json:"date"`
	Blocks       []scheduling.ScheduledBlock `json:"blocks"`
	TotalMinutes int                         `json:"total_minutes"`
}

// GetSchedule returns the rendered day
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	user, date, opts, ok := h.scheduleParams(w, r)
	if !ok {
		return
	}

	tasks, ok := h.loadTasks(w, r, user.ID, date)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.buildDay(r.Context(), user, date, tasks, opts))
}

// SetSelection assigns or clears the task's priority and stores the new snapshot
func (h *ScheduleHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	user, date, opts, ok := h.scheduleParams(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tasks, ok := h.loadTasks(w, r, user.ID, date)
	if !ok {
		return
	}

	normalized, err := scheduling.Normalize(tasks)
	if err != nil {
		h.logger.Warn("priority_invariant_repaired",
			zap.String("user_id", user.ID.String()),
			zap.String("date", date.String()),
			zap.Error(err),
		)
	}
	next := scheduling.SetPriority(normalized, req.TaskID, *req.Selected)

	if err := h.tasks.SaveSchedule(r.Context(), user.ID, date, next); err != nil {
		h.logger.Error("failed_to_save_schedule",
			zap.String("user_id", user.ID.String()),
			zap.String("date", date.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save schedule")
		return
	}

	respondJSON(w, http.StatusOK, h.buildDay(r.Context(), user, date, next, opts))
}

// MoveBlock replays a drag of delta_pixels on the task's block and commits
// the resulting start time
func (h *ScheduleHandler) MoveBlock(w http.ResponseWriter, r *http.Request) {
	user, date, opts, ok := h.scheduleParams(w, r)
	if !ok {
		return
	}

	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tasks, ok := h.loadTasks(w, r, user.ID, date)
	if !ok {
		return
	}

	normalized, _ := scheduling.Normalize(tasks)
	blocks := scheduling.ApplyOverrides(scheduling.Layout(normalized, opts.StartOfDay), normalized)
	block, found := scheduling.FindBlock(blocks, req.TaskID)
	if !found {
		respondJSON(w, http.StatusOK, h.buildDay(r.Context(), user, date, normalized, opts))
		return
	}

	// a gesture that ends where it began does not pin the block
	effect := scheduling.Nudge(block, false, scheduling.Pixels(req.DeltaPixels), opts.PixelsPerMinute)
	if effect.Kind == scheduling.EffectCommit && effect.Start != block.StartTime {
		start := effect.Start
		if err := h.tasks.SetStartOverride(r.Context(), user.ID, date, req.TaskID, &start); err != nil {
			if errors.Is(err, database.ErrTaskNotFound) {
				respondJSONError(w, http.StatusNotFound, "Not Found", "Task is not scheduled on this date")
				return
			}
			h.logger.Error("failed_to_commit_move", zap.String("task_id", req.TaskID.String()), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to move task")
			return
		}
		tasks = withStartOverride(tasks, req.TaskID, &start)
	}

	respondJSON(w, http.StatusOK, h.buildDay(r.Context(), user, date, tasks, opts))
}

// ClearMove drops a manual start so the block returns to its packed slot
func (h *ScheduleHandler) ClearMove(w http.ResponseWriter, r *http.Request) {
	user, date, opts, ok := h.scheduleParams(w, r)
	if !ok {
		return
	}
	taskID, ok := uuidVar(w, r, "task_id")
	if !ok {
		return
	}

	err := h.tasks.SetStartOverride(r.Context(), user.ID, date, taskID, nil)
	if errors.Is(err, database.ErrTaskNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task is not scheduled on this date")
		return
	}
	if err != nil {
		h.logger.Error("failed_to_clear_move", zap.String("task_id", taskID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reset task")
		return
	}

	tasks, ok := h.loadTasks(w, r, user.ID, date)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.buildDay(r.Context(), user, date, tasks, opts))
}

// Generate returns the final ordered schedule. It fails with 422 when no
// task is selected.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, date, opts, ok := h.scheduleParams(w, r)
	if !ok {
		return
	}

	tasks, ok := h.loadTasks(w, r, user.ID, date)
	if !ok {
		return
	}

	normalized, _ := scheduling.Normalize(tasks)
	if err := scheduling.RequireSelection(normalized); err != nil {
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
		return
	}

	blocks := scheduling.ApplyOverrides(scheduling.Layout(normalized, opts.StartOfDay), normalized)
	total := 0
	for _, b := range blocks {
		total += b.DurationMinutes
	}
	respondJSON(w, http.StatusOK, GeneratedSchedule{Date: date, Blocks: blocks, TotalMinutes: total})
}

func (h *ScheduleHandler) scheduleParams(w http.ResponseWriter, r *http.Request) (*models.User, models.Date, scheduling.Options, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return nil, models.Date{}, scheduling.Options{}, false
	}
	date, ok := dateVar(w, r)
	if !ok {
		return nil, models.Date{}, scheduling.Options{}, false
	}

	opts := h.options
	if raw := r.URL.Query().Get("start_of_day"); raw != "" {
		start, err := models.ParseClock(raw)
		if err != nil || !start.InDay() {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "start_of_day must be HH:mm between 00:00 and 23:59")
			return nil, models.Date{}, scheduling.Options{}, false
		}
		opts.StartOfDay = start
	}
	return user, date, opts, true
}

func (h *ScheduleHandler) loadTasks(w http.ResponseWriter, r *http.Request, userID uuid.UUID, date models.Date) ([]models.Task, bool) {
	tasks, err := h.tasks.ListForDate(r.Context(), userID, date)
	if err != nil {
		h.logger.Error("failed_to_list_tasks_for_date",
			zap.String("user_id", userID.String()),
			zap.String("date", date.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return nil, false
	}
	return tasks, true
}

// buildDay renders the day. A failing calendar only adds a warning.
func (h *ScheduleHandler) buildDay(ctx context.Context, user *models.User, date models.Date, tasks []models.Task, opts scheduling.Options) scheduling.DaySchedule {
	fixed, err := h.calendar.ListFixedEvents(ctx, date, user.Location())
	if err != nil {
		h.logger.Warn("failed_to_list_fixed_events",
			zap.String("user_id", user.ID.String()),
			zap.String("date", date.String()),
			zap.Error(err),
		)
		fixed = nil
	}

	day := scheduling.BuildDay(tasks, fixed, opts)
	if err != nil {
		day.Warnings = append(day.Warnings, "fixed events unavailable")
	}
	return day
}

func withStartOverride(tasks []models.Task, taskID uuid.UUID, start *models.ClockTime) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].ID == taskID {
			out[i].StartOverride = start
		}
	}
	return out
}
