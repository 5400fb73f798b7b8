package ai

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExtractAPIError_FromText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		wantNil       bool
		wantPermanent bool
		wantRetry     time.Duration
	}{
		{"nil", nil, true, false, 0},
		{"unrelated", errors.New("connection refused"), true, false, 0},
		{"rate limit", errors.New(`POST: 429 Too Many Requests {"message":"slow down","type":"requests","code":"rate_limit_exceeded"}`), false, false, time.Minute},
		{"quota", errors.New(`429 {"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}`), false, true, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractAPIError(tt.err)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected APIError")
			}
			if got.IsPermanent != tt.wantPermanent {
				t.Errorf("Expected permanent=%v, got %v", tt.wantPermanent, got.IsPermanent)
			}
			if got.RetryAfter == nil || *got.RetryAfter != tt.wantRetry {
				t.Errorf("Expected retry %v, got %v", tt.wantRetry, got.RetryAfter)
			}
		})
	}
}

func TestIsRateLimitAndQuota(t *testing.T) {
	t.Parallel()

	rate := fmt.Errorf("failed to parse task: %w", &APIError{StatusCode: 429})
	quota := fmt.Errorf("failed to parse task: %w", &APIError{StatusCode: 429, IsPermanent: true, Code: "insufficient_quota"})

	if !IsRateLimitError(rate) || IsQuotaError(rate) {
		t.Error("Expected transient rate limit classification")
	}
	if IsRateLimitError(quota) || !IsQuotaError(quota) {
		t.Error("Expected quota classification")
	}
	if IsRateLimitError(nil) || IsQuotaError(nil) {
		t.Error("Expected nil error to be neither")
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	generic := errors.New("boom")
	if got := GetRetryDelay(generic, 0); got != 5*time.Second {
		t.Errorf("Expected 5s, got %v", got)
	}
	if got := GetRetryDelay(generic, 50); got != 5*time.Minute {
		t.Errorf("Expected cap of 5m, got %v", got)
	}
	rate := &APIError{StatusCode: 429}
	if got := GetRetryDelay(rate, 1); got != 2*time.Minute {
		t.Errorf("Expected 2m, got %v", got)
	}
	quota := &APIError{StatusCode: 429, IsPermanent: true}
	if got := GetRetryDelay(quota, 10); got != 24*time.Hour {
		t.Errorf("Expected cap of 24h, got %v", got)
	}
}

func TestGetRetryDelay_HonoursWrappedRetryAfter(t *testing.T) {
	t.Parallel()

	retryAfter := 10 * time.Minute
	wrapped := fmt.Errorf("failed to parse task: %w", &APIError{
		StatusCode: 429,
		Message:    "slow down",
		RetryAfter: &retryAfter,
	})

	apiErr := ExtractAPIError(wrapped)
	if apiErr == nil || apiErr.RetryAfter == nil || *apiErr.RetryAfter != retryAfter {
		t.Fatalf("Expected the wrapped APIError with Retry-After %v, got %+v", retryAfter, apiErr)
	}
	if got := GetRetryDelay(wrapped, 0); got != retryAfter {
		t.Errorf("Expected %v, got %v", retryAfter, got)
	}

	// a shorter server hint never undercuts the back-off
	short := time.Second
	wrapped = fmt.Errorf("failed to parse task: %w", &APIError{StatusCode: 429, RetryAfter: &short})
	if got := GetRetryDelay(wrapped, 1); got != 2*time.Minute {
		t.Errorf("Expected 2m, got %v", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	if got := parseRetryAfter(""); got != nil {
		t.Errorf("Expected nil, got %v", *got)
	}
	if got := parseRetryAfter("15"); got == nil || *got != 15*time.Second {
		t.Errorf("Expected 15s, got %v", got)
	}
	if got := parseRetryAfter("soon"); got != nil {
		t.Errorf("Expected nil for garbage, got %v", *got)
	}
}
