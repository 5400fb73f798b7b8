package scheduling

import (
	"github.com/keisuke70/tasklazy/internal/models"
)

// TimelineRow is one rendered item of the day view
type TimelineRow struct {
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	Priority  int              `json:"priority,omitempty"`
	StartTime models.ClockTime `json:"start_time"`
	EndTime   models.ClockTime `json:"end_time"`
	Top       Pixels           `json:"top"`
	Height    Pixels           `json:"height"`
	Fixed     bool             `json:"fixed"`
}

// DaySchedule is everything needed to draw one day
type DaySchedule struct {
	StartOfDay   models.ClockTime    `json:"start_of_day"`
	Window       DisplayWindow       `json:"window"`
	Blocks       []ScheduledBlock    `json:"blocks"`
	FixedEvents  []models.FixedEvent `json:"fixed_events"`
	Rows         []TimelineRow       `json:"rows"`
	TotalMinutes int                 `json:"total_minutes"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// BuildDay repairs the priorities of tasks if needed, lays them out, applies
// manual starts and positions every block and fixed event in the window.
func BuildDay(tasks []models.Task, fixed []models.FixedEvent, opts Options) DaySchedule {
	day := DaySchedule{
		StartOfDay:  opts.StartOfDay,
		Window:      opts.Window(),
		FixedEvents: fixed,
	}
	if day.FixedEvents == nil {
		day.FixedEvents = []models.FixedEvent{}
	}

	normalized, err := Normalize(tasks)
	if err != nil {
		day.Warnings = append(day.Warnings, err.Error())
	}

	day.Blocks = ApplyOverrides(Layout(normalized, opts.StartOfDay), normalized)
	day.Rows = make([]TimelineRow, 0, len(day.Blocks)+len(fixed))

	for _, ev := range fixed {
		day.Rows = append(day.Rows, TimelineRow{
			ID:        ev.ID,
			Label:     ev.Name,
			StartTime: ev.StartTime,
			EndTime:   ev.EndTime,
			Top:       ToPixelOffset(ev.StartTime, day.Window),
			Height:    BlockHeight(ev.StartTime, ev.EndTime, day.Window),
			Fixed:     true,
		})
	}
	for _, b := range day.Blocks {
		day.TotalMinutes += b.DurationMinutes
		day.Rows = append(day.Rows, TimelineRow{
			ID:        b.TaskID.String(),
			Label:     b.Name,
			Priority:  b.Priority,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Top:       ToPixelOffset(b.StartTime, day.Window),
			Height:    BlockHeight(b.StartTime, b.EndTime, day.Window),
		})
	}
	return day
}
