package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeParseTask turns a free-text description into a stored task
	JobTypeParseTask JobType = "parse_task"
)

// DefaultMaxRetries is the retry budget for new jobs
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       JobType         `json:"type"`
	UserID     uuid.UUID       `json:"user_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	NotBefore  *time.Time      `json:"not_before,omitempty"`
	NotAfter   *time.Time      `json:"not_after,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`

	// TraceContext carries the W3C trace headers of the enqueuing request
	TraceContext map[string]string `json:"trace_context,omitempty"`
}

// ParseTaskPayload carries the text to parse and the zone used to resolve
// relative dates such as "tomorrow"
type ParseTaskPayload struct {
	Description string    `json:"description"`
	TimeZone    string    `json:"time_zone"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// NewParseTaskJob creates a parse job for the user
func NewParseTaskJob(userID uuid.UUID, payload ParseTaskPayload) (*Job, error) {
	job := NewJob(JobTypeParseTask, userID)
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = job.CreatedAt
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse payload: %w", err)
	}
	job.Payload = data
	return job, nil
}

// ParseTaskPayload decodes the payload of a parse job
func (j *Job) ParseTaskPayload() (ParseTaskPayload, error) {
	var payload ParseTaskPayload
	if j.Type != JobTypeParseTask {
		return payload, fmt.Errorf("job %s has type %s, not %s", j.ID, j.Type, JobTypeParseTask)
	}
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal parse payload: %w", err)
	}
	return payload, nil
}

// ShouldProcess reports whether the job is inside its processing window
func (j *Job) ShouldProcess() bool {
	return j.shouldProcessAt(time.Now())
}

func (j *Job) shouldProcessAt(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired reports whether the job's NotAfter has passed
func (j *Job) IsExpired() bool {
	return j.NotAfter != nil && time.Now().After(*j.NotAfter)
}

// CanRetry reports whether the retry budget has room left
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// RetryAfter returns a copy scheduled no earlier than now+delay with the
// retry count incremented. The copy keeps the job ID.
func (j *Job) RetryAfter(delay time.Duration) *Job {
	next := *j
	next.RetryCount++
	notBefore := time.Now().Add(delay)
	next.NotBefore = &notBefore
	return &next
}
