package logger

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{"empty", "", 10, ""},
		{"plain", "write report", 50, "write report"},
		{"control characters", "a\x00b\x1bc", 50, "abc"},
		{"keeps newlines", "line1\nline2", 50, "line1\nline2"},
		{"truncates", "abcdefghij", 5, "abcde..."},
		{"invalid utf8", "ok\xffok", 50, "okok"},
		{"default bound", strings.Repeat("x", 10), 0, strings.Repeat("x", 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSanitizeString_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	got := SanitizeString("予定を立てる", 7)
	if !utf8.ValidString(got) {
		t.Fatalf("Expected valid UTF-8, got %q", got)
	}
	if got != "予定..." {
		t.Errorf("Expected %q, got %q", "予定...", got)
	}
}

func TestSanitizeTaskText_DropsNewlines(t *testing.T) {
	t.Parallel()

	got := SanitizeTaskText("buy milk\n{\"level\":\"error\"}")
	if strings.ContainsAny(got, "\r\n") {
		t.Errorf("Expected single line, got %q", got)
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("Expected empty string for nil error, got %q", got)
	}
	long := errors.New(strings.Repeat("e", MaxErrorMessageLength+50))
	if got := SanitizeError(long); len(got) != MaxErrorMessageLength+3 {
		t.Errorf("Expected truncated error of %d bytes, got %d", MaxErrorMessageLength+3, len(got))
	}
}
