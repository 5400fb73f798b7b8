package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrEmptyTaskName is returned when the model produced no task name
	ErrEmptyTaskName = errors.New("parsed task has no name")
	// ErrNoChoices is returned when the API response has no choices
	ErrNoChoices = errors.New("no choices in response")
)

const (
	defaultRateLimitRetry = 60 * time.Second
	defaultQuotaRetry     = time.Hour
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool // quota exhaustion rather than a transient rate limit
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError reports whether err is a transient rate limit
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.IsPermanent
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsQuotaError reports whether err is a quota or billing exhaustion
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}

	errStr := err.Error()
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "billing")
}

// ExtractAPIError converts an SDK error into an APIError, or returns nil
// when err is not a rate limit or quota response. An APIError already in
// the chain is returned as is.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		if sdkErr.StatusCode != http.StatusTooManyRequests {
			return nil
		}
		apiErr := &APIError{
			StatusCode:  sdkErr.StatusCode,
			Message:     sdkErr.Message,
			Type:        sdkErr.Type,
			Code:        sdkErr.Code,
			IsPermanent: sdkErr.Code == "insufficient_quota",
		}
		if sdkErr.Response != nil {
			apiErr.RetryAfter = parseRetryAfter(sdkErr.Response.Header.Get("Retry-After"))
		}
		applyDefaultRetry(apiErr)
		return apiErr
	}

	// Providers behind compatible gateways sometimes only surface the status in text
	errStr := err.Error()
	if !strings.Contains(errStr, "429") {
		return nil
	}
	apiErr = &APIError{
		StatusCode: http.StatusTooManyRequests,
		Message:    errStr,
		Type:       "rate_limit_error",
	}
	if start := strings.Index(errStr, "{"); start != -1 {
		if end := strings.LastIndex(errStr, "}"); end > start {
			var errorData struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			}
			if json.Unmarshal([]byte(errStr[start:end+1]), &errorData) == nil {
				apiErr.Message = errorData.Message
				apiErr.Type = errorData.Type
				apiErr.Code = errorData.Code
				apiErr.IsPermanent = errorData.Code == "insufficient_quota"
			}
		}
	}
	applyDefaultRetry(apiErr)
	return apiErr
}

func applyDefaultRetry(apiErr *APIError) {
	if apiErr.RetryAfter != nil {
		return
	}
	retry := defaultRateLimitRetry
	if apiErr.IsPermanent {
		retry = defaultQuotaRetry
	}
	apiErr.RetryAfter = &retry
}

func parseRetryAfter(header string) *time.Duration {
	if header == "" {
		return nil
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		d := time.Duration(seconds) * time.Second
		return &d
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return &d
		}
	}
	return nil
}

// GetRetryDelay returns the backoff before retry number attempt (0-based)
func GetRetryDelay(err error, attempt int) time.Duration {
	shift := min(max(attempt, 0), 10)

	if IsQuotaError(err) {
		return min(defaultQuotaRetry*time.Duration(1<<shift), 24*time.Hour)
	}

	if IsRateLimitError(err) {
		delay := min(defaultRateLimitRetry*time.Duration(1<<shift), 15*time.Minute)
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	}

	return min(5*time.Second*time.Duration(1<<shift), 5*time.Minute)
}
