package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength bounds URL paths in logs
	MaxPathLength = 500
	// MaxErrorMessageLength bounds error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is used when no explicit bound is given
	MaxGeneralStringLength = 2000
	// MaxDebugContentLength bounds prompts and model responses in debug logs
	MaxDebugContentLength = 10000
	// MaxTaskTextLength bounds task names and descriptions in logs
	MaxTaskTextLength = 200
)

// SanitizePath prepares a request path for logging
func SanitizePath(path string) string {
	return sanitize(path, MaxPathLength, false)
}

// SanitizeString removes control characters and invalid UTF-8 from s and
// truncates it to maxLength bytes on a rune boundary
func SanitizeString(s string, maxLength int) string {
	return sanitize(s, maxLength, true)
}

// SanitizeError prepares an error message for logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return sanitize(err.Error(), MaxErrorMessageLength, false)
}

// SanitizeTaskText prepares user-entered task text for logging. Newlines are
// dropped so one entry stays on one line.
func SanitizeTaskText(s string) string {
	return sanitize(s, MaxTaskTextLength, false)
}

// SanitizeDebugContent prepares prompts and model output for debug logging
func SanitizeDebugContent(content string) string {
	return sanitize(content, MaxDebugContentLength, true)
}

func sanitize(s string, maxLength int, keepNewlines bool) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(min(len(s), maxLength+3))
	for _, r := range s {
		keep := unicode.IsPrint(r) || r == ' ' || r == '\t'
		if keepNewlines && (r == '\n' || r == '\r') {
			keep = true
		}
		if !keep {
			continue
		}
		if builder.Len()+utf8.RuneLen(r) > maxLength {
			builder.WriteString("...")
			break
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
