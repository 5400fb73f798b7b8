package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const healthCheckTimeout = 5 * time.Second

// Checker is a dependency that can report its health
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

// HealthCheck calls f
func (f CheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// RedisChecker pings a Redis client
func RedisChecker(client *redis.Client) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// HealthChecker handles health check requests
type HealthChecker struct {
	checks map[string]Checker
}

// NewHealthChecker creates a health checker over named dependencies. Nil
// checkers are skipped.
func NewHealthChecker(checks map[string]Checker) *HealthChecker {
	hc := &HealthChecker{checks: make(map[string]Checker, len(checks))}
	for name, c := range checks {
		if c != nil {
			hc.checks[name] = c
		}
	}
	return hc
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles /healthz. With ?mode=extended every dependency is probed.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		response.Checks = make(map[string]string, len(names))
		for _, name := range names {
			if err := h.checks[name].HealthCheck(ctx); err != nil {
				response.Status = "unhealthy"
				response.Checks[name] = "unhealthy"
				continue
			}
			response.Checks[name] = "healthy"
		}
		if response.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// VersionHandler reports the build version
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"version":   version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
