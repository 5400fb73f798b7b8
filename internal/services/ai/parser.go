package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/models"
)

// ParseRequest is one free-text task description to structure
type ParseRequest struct {
	Description string
	TimeZone    string
	Now         time.Time
}

// TaskParser turns natural language into a structured task
type TaskParser interface {
	ParseTask(ctx context.Context, req ParseRequest) (*models.ParsedTask, error)
}

// ParserConfig selects and configures a TaskParser
type ParserConfig struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	DebugMode bool
}

// ErrProviderNotFound is returned for an unknown provider name
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

// NewTaskParser builds the parser named by cfg.Provider
func NewTaskParser(cfg ParserConfig, logger *zap.Logger) (TaskParser, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai parser requires an API key")
		}
		return NewOpenAIParser(cfg, logger), nil
	default:
		return nil, &ErrProviderNotFound{Name: cfg.Provider}
	}
}

// LocalDate returns the calendar date of now in the named zone, falling
// back to UTC for an unknown zone
func LocalDate(now time.Time, timeZone string) models.Date {
	loc, err := time.LoadLocation(timeZone)
	if err != nil || timeZone == "" {
		loc = time.UTC
	}
	return models.DateOf(now.In(loc))
}

// parsedTaskResponse mirrors the JSON schema sent to the model
type parsedTaskResponse struct {
	Name         string  `json:"name"`
	Duration     *int    `json:"duration"`
	DueDate      *string `json:"due_date"`
	ReminderTime *string `json:"reminder_time"`
	RepeatRule   string  `json:"repeat_rule"`
}

// parseTaskResponse decodes model output, tolerating prose around the JSON
// object, and applies defaults for missing or malformed fields
func parseTaskResponse(content string) (*models.ParsedTask, error) {
	var resp parsedTaskResponse
	raw := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		start := bytes.IndexByte([]byte(raw), '{')
		end := bytes.LastIndexByte([]byte(raw), '}')
		if start == -1 || end <= start {
			return nil, fmt.Errorf("failed to parse task response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse task response: %w", err)
		}
	}

	task := &models.ParsedTask{
		Name:            strings.TrimSpace(resp.Name),
		DurationMinutes: models.DefaultDurationMinutes,
		RepeatRule:      models.ParseRepeatRule(resp.RepeatRule),
	}
	if task.Name == "" {
		return nil, ErrEmptyTaskName
	}
	if resp.Duration != nil && *resp.Duration > 0 {
		task.DurationMinutes = *resp.Duration
	}
	if resp.DueDate != nil && *resp.DueDate != "" {
		if d, err := models.ParseDate(*resp.DueDate); err == nil {
			task.DueDate = &d
		}
	}
	if resp.ReminderTime != nil && *resp.ReminderTime != "" {
		if at, err := time.Parse(time.RFC3339, *resp.ReminderTime); err == nil {
			task.ReminderAt = &at
		}
	}
	return task, nil
}

// taskSchema is the strict JSON schema of the expected response
var taskSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"name", "duration", "due_date", "reminder_time", "repeat_rule"},
	"properties": map[string]any{
		"name": map[string]any{
			"type":        "string",
			"description": "Task name",
		},
		"duration": map[string]any{
			"type":        "integer",
			"description": "Duration in minutes (60 if unspecified)",
		},
		"due_date": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Due date in YYYY-MM-DD format or null if not provided",
		},
		"reminder_time": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Reminder time as an RFC 3339 timestamp with offset, or null if not provided",
		},
		"repeat_rule": map[string]any{
			"type":        "string",
			"enum":        []string{"None", "Daily", "Weekly", "Monthly"},
			"description": "How often the task repeats (None if unspecified)",
		},
	},
}

const parserSystemPrompt = "You are an expert task parser. Parse the task description into a JSON object that strictly adheres to the provided schema. Resolve relative dates against the user's local date."

func buildParsePrompt(req ParseRequest) string {
	zone := req.TimeZone
	if zone == "" {
		zone = "UTC"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "User's local date: %q.\n", LocalDate(req.Now, zone).String())
	fmt.Fprintf(&b, "User's time zone: %q.\n", zone)
	fmt.Fprintf(&b, "Task description: %s\n", req.Description)
	return b.String()
}
