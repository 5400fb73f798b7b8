package scheduling

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/keisuke70/tasklazy/internal/models"
)

// Defaults for the day anchor and the rendered window
var (
	DefaultStartOfDay   = models.Clock(8, 0)
	DefaultDisplayStart = models.Clock(6, 0)
	DefaultDisplayEnd   = models.Clock(22, 0)
)

// DefaultPixelsPerMinute is the 1px = 1min timeline scale
const DefaultPixelsPerMinute = 1.0

// ScheduledBlock is a task placed on the day's timeline. It is derived from
// the task list on every render and never stored.
type ScheduledBlock struct {
	TaskID          uuid.UUID        `json:"task_id"`
	Name            string           `json:"name"`
	Priority        int              `json:"priority"`
	StartTime       models.ClockTime `json:"start_time"`
	EndTime         models.ClockTime `json:"end_time"`
	DurationMinutes int              `json:"duration_minutes"`
	Moved           bool             `json:"moved"`
}

// Layout packs the prioritized tasks back to back from startOfDay in
// priority order. Tasks without a duration become zero-length placeholders.
func Layout(tasks []models.Task, startOfDay models.ClockTime) []ScheduledBlock {
	selected := Selected(tasks)
	blocks := make([]ScheduledBlock, 0, len(selected))

	cursor := startOfDay
	for _, t := range selected {
		duration := max(t.DurationMinutes, 0)
		blocks = append(blocks, ScheduledBlock{
			TaskID:          t.ID,
			Name:            t.Name,
			Priority:        *t.Priority,
			StartTime:       cursor,
			EndTime:         cursor.Add(duration),
			DurationMinutes: duration,
		})
		cursor = cursor.Add(duration)
	}
	return blocks
}

// ApplyOverrides moves the blocks of tasks with a committed manual start to
// that start. All other blocks keep their packed placement.
func ApplyOverrides(blocks []ScheduledBlock, tasks []models.Task) []ScheduledBlock {
	overrides := make(map[uuid.UUID]models.ClockTime)
	for _, t := range tasks {
		if t.StartOverride != nil {
			overrides[t.ID] = *t.StartOverride
		}
	}

	out := make([]ScheduledBlock, len(blocks))
	for i, b := range blocks {
		if start, ok := overrides[b.TaskID]; ok {
			b.StartTime = start
			b.EndTime = start.Add(b.DurationMinutes)
			b.Moved = true
		}
		out[i] = b
	}
	return out
}

// FindBlock returns the block for the task, if scheduled
func FindBlock(blocks []ScheduledBlock, taskID uuid.UUID) (ScheduledBlock, bool) {
	for _, b := range blocks {
		if b.TaskID == taskID {
			return b, true
		}
	}
	return ScheduledBlock{}, false
}

// DisplayWindow is the visible slice of the day and its vertical scale
type DisplayWindow struct {
	Start           models.ClockTime `json:"start"`
	End             models.ClockTime `json:"end"`
	PixelsPerMinute float64          `json:"pixels_per_minute"`
}

// Height is the full rendered height of the window
func (w DisplayWindow) Height() Pixels {
	return MinutesToPixels(int(w.End-w.Start), w.PixelsPerMinute)
}

// ToPixelOffset maps a clock time to its vertical offset inside the window.
// Times before the window map to 0 and times at or past its end map to the
// full height.
func ToPixelOffset(t models.ClockTime, w DisplayWindow) Pixels {
	if t <= w.Start {
		return 0
	}
	if t >= w.End {
		return w.Height()
	}
	return MinutesToPixels(int(t-w.Start), w.PixelsPerMinute)
}

// BlockHeight is the rendered height of a span inside the window, clipped
// at both edges
func BlockHeight(start, end models.ClockTime, w DisplayWindow) Pixels {
	return ToPixelOffset(end, w) - ToPixelOffset(start, w)
}

// Options configure layout and rendering
type Options struct {
	StartOfDay      models.ClockTime
	DisplayStart    models.ClockTime
	DisplayEnd      models.ClockTime
	PixelsPerMinute float64
}

// DefaultOptions returns an 08:00 anchor on a 06:00-22:00 window at 1px per minute
func DefaultOptions() Options {
	return Options{
		StartOfDay:      DefaultStartOfDay,
		DisplayStart:    DefaultDisplayStart,
		DisplayEnd:      DefaultDisplayEnd,
		PixelsPerMinute: DefaultPixelsPerMinute,
	}
}

// Window returns the display window described by o
func (o Options) Window() DisplayWindow {
	return DisplayWindow{Start: o.DisplayStart, End: o.DisplayEnd, PixelsPerMinute: o.PixelsPerMinute}
}

// Validate checks that o describes a usable window
func (o Options) Validate() error {
	if !o.StartOfDay.InDay() {
		return fmt.Errorf("start of day %v is outside 00:00-23:59", o.StartOfDay)
	}
	if !o.DisplayStart.InDay() {
		return fmt.Errorf("display start %v is outside 00:00-23:59", o.DisplayStart)
	}
	if o.DisplayEnd <= o.DisplayStart || o.DisplayEnd > models.Clock(24, 0) {
		return fmt.Errorf("display end %v must be after display start %v and no later than 24:00", o.DisplayEnd, o.DisplayStart)
	}
	if o.PixelsPerMinute <= 0 {
		return fmt.Errorf("pixels per minute must be positive, got %v", o.PixelsPerMinute)
	}
	return nil
}
