package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/scheduling"
)

const testDate = "2025-03-10"

func schedulePath(suffix string) string {
	return "/api/v1/schedule/" + testDate + suffix
}

func (ts *testServer) selectTask(t *testing.T, subject string, id uuid.UUID, selected bool) scheduling.DaySchedule {
	t.Helper()
	body := fmt.Sprintf(`{"task_id":%q,"selected":%v}`, id, selected)
	rr := ts.do(t, subject, http.MethodPost, schedulePath("/selection"), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from selection, got %d: %s", rr.Code, rr.Body.String())
	}
	var day scheduling.DaySchedule
	decodeData(t, rr, &day)
	return day
}

func blockTimes(day scheduling.DaySchedule) []string {
	out := make([]string, 0, len(day.Blocks))
	for _, b := range day.Blocks {
		out = append(out, fmt.Sprintf("%d:%s-%s", b.Priority, b.StartTime, b.EndTime))
	}
	return out
}

func assertBlocks(t *testing.T, day scheduling.DaySchedule, want ...string) {
	t.Helper()
	got := blockTimes(day)
	if len(got) != len(want) {
		t.Fatalf("Expected blocks %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected blocks %v, got %v", want, got)
		}
	}
}

func TestScheduleSelectionFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})

	write := ts.createTask(t, "alice", "Write", 45)
	review := ts.createTask(t, "alice", "Review", 30)
	deploy := ts.createTask(t, "alice", "Deploy", 60)

	ts.selectTask(t, "alice", write.ID, true)
	ts.selectTask(t, "alice", review.ID, true)
	day := ts.selectTask(t, "alice", deploy.ID, true)
	assertBlocks(t, day, "1:08:00-08:45", "2:08:45-09:15", "3:09:15-10:15")
	if day.TotalMinutes != 135 {
		t.Errorf("Expected 135 scheduled minutes, got %d", day.TotalMinutes)
	}

	day = ts.selectTask(t, "alice", write.ID, false)
	assertBlocks(t, day, "1:08:00-08:30", "2:08:30-09:30")

	// selecting again is idempotent
	day = ts.selectTask(t, "alice", review.ID, true)
	assertBlocks(t, day, "1:08:00-08:30", "2:08:30-09:30")

	rr := ts.do(t, "alice", http.MethodGet, schedulePath("?start_of_day=09:00"), "")
	decodeData(t, rr, &day)
	assertBlocks(t, day, "1:09:00-09:30", "2:09:30-10:30")

	// other dates are independent
	rr = ts.do(t, "alice", http.MethodGet, "/api/v1/schedule/2025-03-11", "")
	decodeData(t, rr, &day)
	assertBlocks(t, day)
}

func TestScheduleSelection_UnknownTaskIsNoop(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})
	task := ts.createTask(t, "alice", "Only", 30)
	ts.selectTask(t, "alice", task.ID, true)

	day := ts.selectTask(t, "alice", uuid.New(), true)
	assertBlocks(t, day, "1:08:00-08:30")
}

func TestScheduleMoves(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})

	first := ts.createTask(t, "alice", "First", 60)
	second := ts.createTask(t, "alice", "Second", 30)
	ts.selectTask(t, "alice", first.ID, true)
	ts.selectTask(t, "alice", second.ID, true)

	move := func(id uuid.UUID, delta float64) scheduling.DaySchedule {
		t.Helper()
		rr := ts.do(t, "alice", http.MethodPost, schedulePath("/moves"), fmt.Sprintf(`{"task_id":%q,"delta_pixels":%v}`, id, delta))
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200 from move, got %d: %s", rr.Code, rr.Body.String())
		}
		var day scheduling.DaySchedule
		decodeData(t, rr, &day)
		return day
	}

	day := move(second.ID, 29.6)
	assertBlocks(t, day, "1:08:00-09:00", "2:09:30-10:00")
	if !day.Blocks[1].Moved || day.Blocks[0].Moved {
		t.Errorf("Expected only the dragged block to be marked moved, got %+v", day.Blocks)
	}

	// far beyond midnight clamps to the last minute of the day
	day = move(first.ID, 5000)
	if day.Blocks[0].StartTime != models.MaxClock {
		t.Errorf("Expected clamp to 23:59, got %s", day.Blocks[0].StartTime)
	}

	// unknown block leaves everything in place
	day = move(uuid.New(), 10)
	if day.Blocks[1].StartTime != models.Clock(9, 30) {
		t.Errorf("Expected unchanged schedule, got %v", blockTimes(day))
	}

	rr := ts.do(t, "alice", http.MethodDelete, schedulePath("/moves/"+second.ID.String()), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from reset, got %d", rr.Code)
	}
	decodeData(t, rr, &day)
	if day.Blocks[1].StartTime != models.Clock(9, 0) || day.Blocks[1].Moved {
		t.Errorf("Expected packed slot after reset, got %+v", day.Blocks[1])
	}

	rr = ts.do(t, "alice", http.MethodDelete, schedulePath("/moves/"+uuid.NewString()), "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 resetting an unscheduled task, got %d", rr.Code)
	}
}

func TestScheduleMoves_ZeroDeltaKeepsBlockPacked(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})

	first := ts.createTask(t, "alice", "First", 30)
	second := ts.createTask(t, "alice", "Second", 30)
	ts.selectTask(t, "alice", first.ID, true)
	ts.selectTask(t, "alice", second.ID, true)

	for _, delta := range []float64{0, 0.4, -0.4} {
		rr := ts.do(t, "alice", http.MethodPost, schedulePath("/moves"), fmt.Sprintf(`{"task_id":%q,"delta_pixels":%v}`, second.ID, delta))
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200 from move, got %d: %s", rr.Code, rr.Body.String())
		}
		var day scheduling.DaySchedule
		decodeData(t, rr, &day)
		assertBlocks(t, day, "1:08:00-08:30", "2:08:30-09:00")
		if day.Blocks[1].Moved {
			t.Errorf("Expected delta %v not to pin the block, got %+v", delta, day.Blocks[1])
		}
	}

	day := ts.selectTask(t, "alice", first.ID, false)
	assertBlocks(t, day, "1:08:00-08:30")
	if day.Blocks[0].Moved {
		t.Errorf("Expected the remaining block to repack, got %+v", day.Blocks[0])
	}
}

func TestScheduleMoves_HugeDeltaClampsToEndOfDay(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})

	task := ts.createTask(t, "alice", "Late", 30)
	ts.selectTask(t, "alice", task.ID, true)

	tests := []struct {
		delta string
		want  models.ClockTime
	}{
		{delta: "1e19", want: models.MaxClock},
		{delta: "1e300", want: models.MaxClock},
		{delta: "-1e19", want: models.MinClock},
	}
	for _, tt := range tests {
		rr := ts.do(t, "alice", http.MethodPost, schedulePath("/moves"), fmt.Sprintf(`{"task_id":%q,"delta_pixels":%s}`, task.ID, tt.delta))
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200 from move, got %d: %s", rr.Code, rr.Body.String())
		}
		var day scheduling.DaySchedule
		decodeData(t, rr, &day)
		if day.Blocks[0].StartTime != tt.want {
			t.Errorf("Delta %s: expected start %s, got %s", tt.delta, tt.want, day.Blocks[0].StartTime)
		}
	}
}

func TestScheduleGenerate(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})
	task := ts.createTask(t, "alice", "Plan", 25)

	rr := ts.do(t, "alice", http.MethodPost, schedulePath("/generate"), "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 with nothing selected, got %d", rr.Code)
	}

	ts.selectTask(t, "alice", task.ID, true)
	rr = ts.do(t, "alice", http.MethodPost, schedulePath("/generate"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var plan GeneratedSchedule
	decodeData(t, rr, &plan)
	if plan.Date.String() != testDate || plan.TotalMinutes != 25 || len(plan.Blocks) != 1 {
		t.Errorf("Unexpected plan %+v", plan)
	}
}

func TestScheduleFixedEvents(t *testing.T) {
	t.Parallel()

	standup := models.FixedEvent{ID: "ev1", Name: "Standup", StartTime: models.Clock(9, 0), EndTime: models.Clock(9, 15)}
	ts := newTestServer(t, fakeCalendar{events: []models.FixedEvent{standup}})

	rr := ts.do(t, "alice", http.MethodGet, schedulePath(""), "")
	var day scheduling.DaySchedule
	decodeData(t, rr, &day)
	if len(day.FixedEvents) != 1 || len(day.Rows) != 1 || !day.Rows[0].Fixed {
		t.Fatalf("Expected one fixed row, got %+v", day)
	}
	if day.Rows[0].Top != 180 || day.Rows[0].Height != 15 {
		t.Errorf("Expected row at 180px with 15px height, got %+v", day.Rows[0])
	}

	failing := newTestServer(t, fakeCalendar{err: errors.New("calendar down")})
	rr = failing.do(t, "alice", http.MethodGet, schedulePath(""), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected calendar failure to degrade, got %d", rr.Code)
	}
	decodeData(t, rr, &day)
	if len(day.Warnings) == 0 {
		t.Error("Expected a warning when fixed events are unavailable")
	}
}

func TestScheduleBadParams(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "bad date", method: http.MethodGet, path: "/api/v1/schedule/10-03-2025"},
		{name: "bad start of day", method: http.MethodGet, path: schedulePath("?start_of_day=25:00")},
		{name: "selection without flag", method: http.MethodPost, path: schedulePath("/selection"), body: fmt.Sprintf(`{"task_id":%q}`, uuid.New())},
		{name: "selection without id", method: http.MethodPost, path: schedulePath("/selection"), body: `{"selected":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, "alice", tt.method, tt.path, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}
