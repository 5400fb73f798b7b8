package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/queue"
	"github.com/keisuke70/tasklazy/internal/telemetry"
	"github.com/keisuke70/tasklazy/internal/validation"
)

// MaxDescriptionLength bounds free-text task descriptions
const MaxDescriptionLength = 1000

// ParseHandler accepts free-text task descriptions for asynchronous parsing
type ParseHandler struct {
	queue  queue.JobQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewParseHandler creates a new parse handler
func NewParseHandler(q queue.JobQueue, logger *zap.Logger) *ParseHandler {
	return &ParseHandler{queue: q, logger: logger, now: time.Now}
}

// ParseTaskRequest is the body of POST /tasks/parse
type ParseTaskRequest struct {
	Description string `json:"description" validate:"required,max=1000"`
	TimeZone    string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// ParseAccepted is returned once the job is queued
type ParseAccepted struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// ParseTask enqueues a parse job and answers 202
func (h *ParseHandler) ParseTask(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ParseTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	description := validation.SanitizeText(req.Description)
	if description == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Description cannot be empty after sanitization")
		return
	}

	tz := req.TimeZone
	if tz == "" {
		tz = user.TimeZone
	}

	job, err := queue.NewParseTaskJob(user.ID, queue.ParseTaskPayload{
		Description: description,
		TimeZone:    tz,
		RequestedAt: h.now(),
	})
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create parse job")
		return
	}
	job.TraceContext = map[string]string{}
	telemetry.InjectHeaders(r.Context(), job.TraceContext)

	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("failed_to_enqueue_parse_job",
			zap.String("user_id", user.ID.String()),
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Task parsing is temporarily unavailable")
		return
	}

	h.logger.Info("enqueued_parse_job",
		zap.String("user_id", user.ID.String()),
		zap.String("job_id", job.ID.String()),
	)
	respondJSON(w, http.StatusAccepted, ParseAccepted{JobID: job.ID, Status: "queued"})
}
