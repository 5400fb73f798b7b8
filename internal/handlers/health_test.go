package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := CheckerFunc(func(context.Context) error { return nil })
	broken := CheckerFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name       string
		checks     map[string]Checker
		query      string
		wantStatus int
		wantState  string
		wantChecks map[string]string
	}{
		{
			name:       "basic mode ignores dependencies",
			checks:     map[string]Checker{"database": broken},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "extended all healthy",
			checks:     map[string]Checker{"database": healthy, "queue": healthy, "redis": nil},
			query:      "?mode=extended",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: map[string]string{"database": "healthy", "queue": "healthy"},
		},
		{
			name:       "extended with failure",
			checks:     map[string]Checker{"database": healthy, "queue": broken},
			query:      "?mode=extended",
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantChecks: map[string]string{"database": "healthy", "queue": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			NewHealthChecker(tt.checks).HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("Expected status %q, got %q", tt.wantState, resp.Status)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, resp.Checks)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("Expected %s=%s, got %s", name, want, resp.Checks[name])
				}
			}
		})
	}
}

func TestRouterPublicEndpoints(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, fakeCalendar{})

	rr := ts.do(t, "", http.MethodGet, "/version", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /version, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("Expected version test, got %q", body["version"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("Expected request id header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected security headers on public routes")
	}

	if rr := ts.do(t, "", http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("Expected 200 from /healthz, got %d", rr.Code)
	}
}
