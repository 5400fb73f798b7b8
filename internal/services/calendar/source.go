package calendar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/models"
)

// FixedEventSource lists events that occupy a day's timeline but cannot be
// moved by the user
type FixedEventSource interface {
	ListFixedEvents(ctx context.Context, date models.Date, loc *time.Location) ([]models.FixedEvent, error)
}

// NoopSource is used when no calendar is configured
type NoopSource struct{}

// ListFixedEvents always returns no events
func (NoopSource) ListFixedEvents(context.Context, models.Date, *time.Location) ([]models.FixedEvent, error) {
	return []models.FixedEvent{}, nil
}

var _ FixedEventSource = NoopSource{}

// NewSource returns a Google Calendar source when every setting is present
// and NoopSource otherwise
func NewSource(ctx context.Context, credentialsFile, tokenFile, calendarID string, logger *zap.Logger) (FixedEventSource, error) {
	if credentialsFile == "" || tokenFile == "" || calendarID == "" {
		return NoopSource{}, nil
	}
	src, err := NewGoogleCalendarSource(ctx, credentialsFile, tokenFile, calendarID, logger)
	if err != nil {
		return nil, err
	}
	return src, nil
}
