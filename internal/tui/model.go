// Package tui is the terminal dashboard: the day's tasks on the left and a
// draggable timeline on the right.
package tui

import (
	"context"
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/scheduling"
	"github.com/keisuke70/tasklazy/internal/services/calendar"
)

// DefaultRowsPerMinute draws one terminal row per quarter hour
const DefaultRowsPerMinute = 1.0 / 15

const (
	headerHeight = 2
	listWidth    = 38
	gutterWidth  = 6
	// timelineX is the first column of the timeline pane; one column separates the panes
	timelineX = listWidth + 1
)

// Config selects whose day is shown and how it is laid out. Options.PixelsPerMinute
// is interpreted as terminal rows per minute.
type Config struct {
	UserID   uuid.UUID
	Location *time.Location
	Date     models.Date
	Options  scheduling.Options
}

// Model is the bubbletea model of the dashboard
type Model struct {
	ctx      context.Context
	tasks    database.TaskRepositoryInterface
	calendar calendar.FixedEventSource
	logger   *zap.Logger

	userID uuid.UUID
	loc    *time.Location
	opts   scheduling.Options

	date   models.Date
	list   []models.Task
	fixed  []models.FixedEvent
	day    scheduling.DaySchedule
	cursor int
	drag   scheduling.Drag

	fixedErr error
	err      error
	status   string
	width    int
	height   int
	loading  bool
	quitting bool
}

type dayLoadedMsg struct {
	date     models.Date
	tasks    []models.Task
	fixed    []models.FixedEvent
	fixedErr error
}

type errMsg struct {
	err error
}

// New creates the dashboard model. A nil calendar shows no fixed events.
func New(ctx context.Context, tasks database.TaskRepositoryInterface, cal calendar.FixedEventSource, cfg Config, logger *zap.Logger) Model {
	if cal == nil {
		cal = calendar.NoopSource{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Options.PixelsPerMinute <= 0 {
		cfg.Options.PixelsPerMinute = DefaultRowsPerMinute
	}
	if cfg.Date.IsZero() {
		cfg.Date = models.DateOf(time.Now().In(cfg.Location))
	}

	m := Model{
		ctx:      ctx,
		tasks:    tasks,
		calendar: cal,
		logger:   logger,
		userID:   cfg.UserID,
		loc:      cfg.Location,
		opts:     cfg.Options,
		date:     cfg.Date,
		drag:     scheduling.NewDrag(cfg.Options.PixelsPerMinute),
		loading:  true,
	}
	m.rebuild()
	return m
}

// Init loads the initial day
func (m Model) Init() tea.Cmd {
	return m.load(m.date)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dayLoadedMsg:
		if msg.date != m.date {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.list = msg.tasks
		m.fixed = msg.fixed
		m.fixedErr = msg.fixedErr
		if m.cursor >= len(m.list) {
			m.cursor = max(len(m.list)-1, 0)
		}
		m.rebuild()
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.list)-1 {
			m.cursor++
		}
	case " ", "space", "enter":
		return m.toggleSelection()
	case "[":
		return m.changeDate(-1)
	case "]":
		return m.changeDate(1)
	case "r":
		return m.resetMove()
	case "esc":
		var eff scheduling.Effect
		m.drag, eff = m.drag.Dispatch(scheduling.PointerLeave{})
		if eff.Kind == scheduling.EffectCancel {
			m.status = "move cancelled"
		}
	}
	return m, nil
}

func (m Model) changeDate(days int) (tea.Model, tea.Cmd) {
	m.date = m.date.AddDays(days)
	m.drag = scheduling.NewDrag(m.opts.PixelsPerMinute)
	m.list = nil
	m.fixed = nil
	m.cursor = 0
	m.status = ""
	m.loading = true
	m.rebuild()
	return m, m.load(m.date)
}

func (m Model) toggleSelection() (tea.Model, tea.Cmd) {
	if len(m.list) == 0 {
		return m, nil
	}
	current := m.list[m.cursor]

	normalized, err := scheduling.Normalize(m.list)
	if err != nil {
		m.logger.Warn("priority_invariant_repaired", zap.String("date", m.date.String()), zap.Error(err))
	}
	next := scheduling.SetPriority(normalized, current.ID, !current.IsSelected())

	m.list = next
	m.rebuild()
	date := m.date
	return m, m.persist(date, func(ctx context.Context) error {
		return m.tasks.SaveSchedule(ctx, m.userID, date, next)
	})
}

func (m Model) resetMove() (tea.Model, tea.Cmd) {
	if len(m.list) == 0 {
		return m, nil
	}
	current := m.list[m.cursor]
	if current.StartOverride == nil {
		return m, nil
	}
	m.list = withStartOverride(m.list, current.ID, nil)
	m.rebuild()
	m.status = "reset " + current.Name
	date := m.date
	return m, m.persist(date, func(ctx context.Context) error {
		return m.tasks.SetStartOverride(ctx, m.userID, date, current.ID, nil)
	})
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	offset, inside := m.timelineOffset(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return m, nil
		}
		row, ok := m.rowAt(offset)
		if !ok {
			return m, nil
		}
		taskID, _ := uuid.Parse(row.ID)
		m.drag, _ = m.drag.Dispatch(scheduling.PointerDown{
			TaskID: taskID,
			Start:  row.StartTime,
			Fixed:  row.Fixed,
			Y:      scheduling.Pixels(offset),
		})
		return m, nil

	case tea.MouseActionMotion:
		if !inside {
			var eff scheduling.Effect
			m.drag, eff = m.drag.Dispatch(scheduling.PointerLeave{})
			if eff.Kind == scheduling.EffectCancel {
				m.status = "move cancelled"
			}
			return m, nil
		}
		m.drag, _ = m.drag.Dispatch(scheduling.PointerMove{Y: scheduling.Pixels(offset)})
		return m, nil

	case tea.MouseActionRelease:
		original := m.drag.OriginalStart()
		var eff scheduling.Effect
		m.drag, eff = m.drag.Dispatch(scheduling.PointerUp{})
		if eff.Kind != scheduling.EffectCommit || eff.Start == original {
			return m, nil
		}
		return m.commitMove(eff)
	}
	return m, nil
}

func (m Model) commitMove(eff scheduling.Effect) (tea.Model, tea.Cmd) {
	start := eff.Start
	m.list = withStartOverride(m.list, eff.TaskID, &start)
	m.rebuild()
	m.status = "moved to " + start.String()
	date := m.date
	return m, m.persist(date, func(ctx context.Context) error {
		return m.tasks.SetStartOverride(ctx, m.userID, date, eff.TaskID, &start)
	})
}

// load fetches the tasks and fixed events of date. A calendar failure is
// carried in the message rather than failing the load.
func (m Model) load(date models.Date) tea.Cmd {
	ctx, tasks, cal, userID, loc := m.ctx, m.tasks, m.calendar, m.userID, m.loc
	return func() tea.Msg {
		list, err := tasks.ListForDate(ctx, userID, date)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to load tasks for %s: %w", date, err)}
		}
		fixed, fixedErr := cal.ListFixedEvents(ctx, date, loc)
		if fixedErr != nil {
			fixed = nil
		}
		return dayLoadedMsg{date: date, tasks: list, fixed: fixed, fixedErr: fixedErr}
	}
}

// persist runs write and then reloads date so the view reflects the store
func (m Model) persist(date models.Date, write func(ctx context.Context) error) tea.Cmd {
	ctx, logger, reload := m.ctx, m.logger, m.load(date)
	return func() tea.Msg {
		if err := write(ctx); err != nil {
			logger.Error("failed_to_save_schedule", zap.String("date", date.String()), zap.Error(err))
			return errMsg{err: fmt.Errorf("failed to save schedule: %w", err)}
		}
		return reload()
	}
}

func (m *Model) rebuild() {
	m.day = scheduling.BuildDay(m.list, m.fixed, m.opts)
	if m.fixedErr != nil {
		m.day.Warnings = append(m.day.Warnings, "fixed events unavailable")
	}
}

// timelineOffset converts a terminal cell to a row offset inside the timeline
func (m Model) timelineOffset(x, y int) (int, bool) {
	offset := y - headerHeight
	if x < timelineX || offset < 0 || offset >= m.timelineRows() {
		return offset, false
	}
	return offset, true
}

func (m Model) timelineRows() int {
	return int(math.Ceil(float64(m.day.Window.Height()) - lineEpsilon))
}

// rowAt returns the topmost drawn row covering offset. Blocks are drawn
// after fixed events, so the search runs backwards.
func (m Model) rowAt(offset int) (scheduling.TimelineRow, bool) {
	for i := len(m.day.Rows) - 1; i >= 0; i-- {
		row := m.day.Rows[i]
		top, height, ok := rowSpan(row)
		if ok && offset >= top && offset < top+height {
			return row, true
		}
	}
	return scheduling.TimelineRow{}, false
}

// rowSpan rounds a row to whole terminal lines; rows outside the window
// report false
func rowSpan(row scheduling.TimelineRow) (top, height int, ok bool) {
	if row.Height <= 0 {
		return 0, 0, false
	}
	top = int(math.Floor(float64(row.Top) + lineEpsilon))
	height = max(int(math.Ceil(float64(row.Top+row.Height)-lineEpsilon))-top, 1)
	return top, height, true
}

// lineEpsilon absorbs float error from fractional rows per minute
const lineEpsilon = 1e-6

// displayRows are the timeline rows with the dragged block at its proposed start
func (m Model) displayRows() []scheduling.TimelineRow {
	if m.drag.State() != scheduling.Dragging {
		return m.day.Rows
	}
	rows := make([]scheduling.TimelineRow, len(m.day.Rows))
	copy(rows, m.day.Rows)
	id := m.drag.TaskID().String()
	for i := range rows {
		if rows[i].Fixed || rows[i].ID != id {
			continue
		}
		length := int(rows[i].EndTime - rows[i].StartTime)
		start := m.drag.Proposed()
		end := start.Add(length)
		rows[i].StartTime = start
		rows[i].EndTime = end
		rows[i].Top = scheduling.ToPixelOffset(start, m.day.Window)
		rows[i].Height = scheduling.BlockHeight(start, end, m.day.Window)
	}
	return rows
}

// Date returns the date on screen
func (m Model) Date() models.Date { return m.date }

// Schedule returns the day currently rendered
func (m Model) Schedule() scheduling.DaySchedule { return m.day }

// Quitting reports whether the user asked to exit
func (m Model) Quitting() bool { return m.quitting }

// Err returns the last load or save error
func (m Model) Err() error { return m.err }

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

// Run starts the dashboard on the terminal and blocks until it exits
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	if fm, ok := final.(Model); ok && fm.err != nil {
		m.logger.Warn("dashboard_exited_with_error", zap.Error(fm.err))
	}
	return nil
}
