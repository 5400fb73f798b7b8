package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RepeatRule represents how often a task recurs
type RepeatRule string

const (
	RepeatNone    RepeatRule = "None"
	RepeatDaily   RepeatRule = "Daily"
	RepeatWeekly  RepeatRule = "Weekly"
	RepeatMonthly RepeatRule = "Monthly"
)

// Valid reports whether r is one of the known rules
func (r RepeatRule) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// ParseRepeatRule matches case-insensitively and falls back to RepeatNone
func ParseRepeatRule(s string) RepeatRule {
	for _, r := range []RepeatRule{RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly} {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r
		}
	}
	return RepeatNone
}

// DefaultDurationMinutes is used when a parsed task carries no usable duration
const DefaultDurationMinutes = 60

// Task represents a user's task. Priority and StartOverride belong to the
// scheduling date the task was loaded for; nil means unselected / packed.
type Task struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Name            string     `json:"name"`
	DurationMinutes int        `json:"duration_minutes"`
	DueDate         *Date      `json:"due_date,omitempty"`
	ReminderAt      *time.Time `json:"reminder_at,omitempty"`
	RepeatRule      RepeatRule `json:"repeat_rule"`
	IsComplete      bool       `json:"is_complete"`
	Priority        *int       `json:"priority,omitempty"`
	StartOverride   *ClockTime `json:"start_override,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsSelected reports whether the task holds a priority
func (t Task) IsSelected() bool {
	return t.Priority != nil
}

// ParsedTask is the structured result of turning a free-text description into a task
type ParsedTask struct {
	Name            string     `json:"name"`
	DurationMinutes int        `json:"duration_minutes"`
	DueDate         *Date      `json:"due_date,omitempty"`
	ReminderAt      *time.Time `json:"reminder_at,omitempty"`
	RepeatRule      RepeatRule `json:"repeat_rule"`
}

// ToTask builds an unselected, incomplete task for the user
func (p ParsedTask) ToTask(userID uuid.UUID) *Task {
	return &Task{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            p.Name,
		DurationMinutes: p.DurationMinutes,
		DueDate:         p.DueDate,
		ReminderAt:      p.ReminderAt,
		RepeatRule:      p.RepeatRule,
	}
}

// FixedEvent is an externally sourced calendar event that occupies the
// timeline but cannot be moved
type FixedEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime ClockTime `json:"start_time"`
	EndTime   ClockTime `json:"end_time"`
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
