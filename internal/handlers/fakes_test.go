package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/queue"
	"github.com/keisuke70/tasklazy/internal/scheduling"
)

type scheduleEntry struct {
	priority int
	start    *models.ClockTime
}

// memTaskRepo is an in-memory TaskRepositoryInterface
type memTaskRepo struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]models.Task
	order    []uuid.UUID
	schedule map[string]map[uuid.UUID]scheduleEntry
	listErr  error
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{
		tasks:    map[uuid.UUID]models.Task{},
		schedule: map[string]map[uuid.UUID]scheduleEntry{},
	}
}

func (m *memTaskRepo) Create(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	m.tasks[task.ID] = *task
	m.order = append(m.order, task.ID)
	return nil
}

func (m *memTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, database.ErrTaskNotFound
	}
	return &t, nil
}

func (m *memTaskRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Task
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok && t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTaskRepo) ListForDate(ctx context.Context, userID uuid.UUID, date models.Date) ([]models.Task, error) {
	tasks, err := m.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.schedule[date.String()]
	for i := range tasks {
		if e, ok := entries[tasks[i].ID]; ok {
			tasks[i].Priority = models.IntPtr(e.priority)
			tasks[i].StartOverride = e.start
		}
	}
	return tasks, nil
}

func (m *memTaskRepo) Update(_ context.Context, userID, id uuid.UUID, patch database.TaskPatch) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return nil, database.ErrTaskNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.DurationMinutes != nil {
		t.DurationMinutes = *patch.DurationMinutes
	}
	if patch.ClearDueDate {
		t.DueDate = nil
	} else if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.ClearReminder {
		t.ReminderAt = nil
	} else if patch.ReminderAt != nil {
		t.ReminderAt = patch.ReminderAt
	}
	if patch.RepeatRule != nil {
		t.RepeatRule = *patch.RepeatRule
	}
	if patch.IsComplete != nil {
		t.IsComplete = *patch.IsComplete
	}
	m.tasks[id] = t
	return &t, nil
}

func (m *memTaskRepo) ToggleComplete(_ context.Context, userID, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return false, database.ErrTaskNotFound
	}
	t.IsComplete = !t.IsComplete
	m.tasks[id] = t
	return t.IsComplete, nil
}

func (m *memTaskRepo) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID {
		return database.ErrTaskNotFound
	}
	delete(m.tasks, id)
	for _, entries := range m.schedule {
		delete(entries, id)
	}
	return nil
}

func (m *memTaskRepo) SaveSchedule(_ context.Context, userID uuid.UUID, date models.Date, tasks []models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := map[uuid.UUID]scheduleEntry{}
	for _, t := range tasks {
		stored, ok := m.tasks[t.ID]
		if t.Priority == nil || !ok || stored.UserID != userID {
			continue
		}
		entries[t.ID] = scheduleEntry{priority: *t.Priority, start: t.StartOverride}
	}
	m.schedule[date.String()] = entries
	return nil
}

func (m *memTaskRepo) SetStartOverride(_ context.Context, _ uuid.UUID, date models.Date, taskID uuid.UUID, start *models.ClockTime) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.schedule[date.String()]
	e, ok := entries[taskID]
	if !ok {
		return database.ErrTaskNotFound
	}
	e.start = start
	entries[taskID] = e
	return nil
}

// memUserRepo is an in-memory UserRepositoryInterface
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memUserRepo) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ProviderID] = user
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (m *memUserRepo) GetByProviderID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, database.ErrUserNotFound
}

func (m *memUserRepo) UpdateTimeZone(_ context.Context, id uuid.UUID, tz string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.TimeZone = tz
			return nil
		}
	}
	return database.ErrUserNotFound
}

// tokenVerifier treats the bearer token as the subject
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (*models.JWTClaims, error) {
	return &models.JWTClaims{Sub: token, Email: token + "@example.com"}, nil
}

// fakeQueue records enqueued jobs
type fakeQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) Consume(context.Context, int) (<-chan queue.MessageInterface, <-chan error, error) {
	return nil, nil, nil
}

func (f *fakeQueue) Close() error { return nil }

func (f *fakeQueue) HealthCheck(context.Context) error { return nil }

type fakeCalendar struct {
	events []models.FixedEvent
	err    error
}

func (f fakeCalendar) ListFixedEvents(context.Context, models.Date, *time.Location) ([]models.FixedEvent, error) {
	return f.events, f.err
}

type testServer struct {
	handler http.Handler
	tasks   *memTaskRepo
	users   *memUserRepo
	queue   *fakeQueue
}

func newTestServer(t *testing.T, cal fakeCalendar) *testServer {
	t.Helper()
	ts := &testServer{
		tasks: newMemTaskRepo(),
		users: &memUserRepo{users: map[string]*models.User{}},
		queue: &fakeQueue{},
	}
	ts.handler = NewRouter(RouterConfig{
		Logger:   zap.NewNop(),
		Version:  "test",
		Tasks:    ts.tasks,
		Users:    ts.users,
		Queue:    ts.queue,
		Calendar: cal,
		Verifier: tokenVerifier{},
		Schedule: scheduling.DefaultOptions(),
	})
	return ts
}

// do sends a request authenticated as subject and returns the recorder
func (ts *testServer) do(t *testing.T, subject, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+subject)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// decodeData unwraps the success envelope into dst
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v (%s)", err, rr.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("Expected success envelope, got %s", rr.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

func (ts *testServer) createTask(t *testing.T, subject, name string, minutes int) models.Task {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"name": name, "duration_minutes": minutes})
	rr := ts.do(t, subject, http.MethodPost, "/api/v1/tasks", string(body))
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating %s, got %d: %s", name, rr.Code, rr.Body.String())
	}
	var task models.Task
	decodeData(t, rr, &task)
	return task
}

// doRaw is like do but with an explicit Content-Type
func (ts *testServer) doRaw(t *testing.T, subject, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+subject)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}
