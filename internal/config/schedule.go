package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/scheduling"
)

// scheduleFile is the on-disk form of the timeline settings
type scheduleFile struct {
	StartOfDay      string  `yaml:"start_of_day"`
	DisplayStart    string  `yaml:"display_start"`
	DisplayEnd      string  `yaml:"display_end"`
	PixelsPerMinute float64 `yaml:"pixels_per_minute"`
}

// LoadSchedule builds timeline options from defaults, then the YAML file at
// path (if any), then SCHEDULE_* environment overrides
func LoadSchedule(path string) (scheduling.Options, error) {
	opts := scheduling.DefaultOptions()

	var file scheduleFile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("failed to read schedule config: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return opts, fmt.Errorf("failed to parse schedule config: %w", err)
		}
	}

	fields := []struct {
		name   string
		envKey string
		value  string
		target *models.ClockTime
	}{
		{"start_of_day", "SCHEDULE_START_OF_DAY", file.StartOfDay, &opts.StartOfDay},
		{"display_start", "SCHEDULE_DISPLAY_START", file.DisplayStart, &opts.DisplayStart},
		{"display_end", "SCHEDULE_DISPLAY_END", file.DisplayEnd, &opts.DisplayEnd},
	}
	for _, f := range fields {
		raw := getEnv(f.envKey, f.value)
		if raw == "" {
			continue
		}
		parsed, err := models.ParseClock(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.target = parsed
	}

	if file.PixelsPerMinute != 0 {
		opts.PixelsPerMinute = file.PixelsPerMinute
	}
	opts.PixelsPerMinute = getEnvFloat("SCHEDULE_PIXELS_PER_MINUTE", opts.PixelsPerMinute)

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid schedule config: %w", err)
	}
	return opts, nil
}
