package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    ClockTime
		wantErr bool
	}{
		{"morning", "08:00", Clock(8, 0), false},
		{"last minute", "23:59", MaxClock, false},
		{"past midnight end", "24:30", Clock(24, 30), false},
		{"single digit hour", "9:05", Clock(9, 5), false},
		{"missing colon", "0800", 0, true},
		{"bad minutes", "08:60", 0, true},
		{"short minutes", "08:5", 0, true},
		{"empty", "", 0, true},
		{"negative", "-1:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClock) {
					t.Errorf("Expected ErrInvalidClock, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClockTime_JSON(t *testing.T) {
	t.Parallel()

	payload := struct {
		At ClockTime `json:"at"`
	}{At: Clock(10, 15)}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"at":"10:15"}` {
		t.Errorf("Unexpected JSON %s", data)
	}

	var decoded struct {
		At ClockTime `json:"at"`
	}
	if err := json.Unmarshal([]byte(`{"at":"23:50"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.At != Clock(23, 50) {
		t.Errorf("Expected 23:50, got %v", decoded.At)
	}
}

func TestClockTime_Clamp(t *testing.T) {
	t.Parallel()

	if got := Clock(23, 50).Add(30).Clamp(MinClock, MaxClock); got != MaxClock {
		t.Errorf("Expected 23:59, got %v", got)
	}
	if got := Clock(0, 10).Add(-30).Clamp(MinClock, MaxClock); got != MinClock {
		t.Errorf("Expected 00:00, got %v", got)
	}
}

func TestDate_Scan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     any
		want    Date
		wantErr bool
	}{
		{"time", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Date{2024, time.March, 9}, false},
		{"string", "2024-12-31", Date{2024, time.December, 31}, false},
		{"bytes", []byte("2025-01-01"), Date{2025, time.January, 1}, false},
		{"int", 42, Date{}, true},
		{"garbage", "tomorrow", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var d Date
			err := d.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && d != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, d)
			}
		})
	}
}

func TestDate_AddDays(t *testing.T) {
	t.Parallel()

	d := Date{2024, time.February, 28}
	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Errorf("Expected leap day, got %s", got)
	}
	if got := d.AddDays(-28).String(); got != "2024-01-31" {
		t.Errorf("Expected 2024-01-31, got %s", got)
	}
}

func TestParseRepeatRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  RepeatRule
	}{
		{"None", RepeatNone},
		{"daily", RepeatDaily},
		{" WEEKLY ", RepeatWeekly},
		{"Monthly", RepeatMonthly},
		{"yearly", RepeatNone},
		{"", RepeatNone},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := ParseRepeatRule(tt.input); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
