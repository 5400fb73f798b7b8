package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/keisuke70/tasklazy/internal/models"
)

const busyLabel = "Busy"

// GoogleCalendarSource reads fixed events from one Google calendar
type GoogleCalendarSource struct {
	srv        *gcal.Service
	calendarID string
	logger     *zap.Logger
}

// OAuthConfig reads an installed-app client secret file for read-only calendar access
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", credentialsFile, err)
	}
	config, err := google.ConfigFromJSON(b, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return config, nil
}

// NewGoogleCalendarSource authenticates with a stored token and returns a source for calendarID
func NewGoogleCalendarSource(ctx context.Context, credentialsFile, tokenFile, calendarID string, logger *zap.Logger) (*GoogleCalendarSource, error) {
	config, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := TokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("no usable calendar token (run `tasklazy calendar-auth`): %w", err)
	}

	srv, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return NewGoogleCalendarSourceFromService(srv, calendarID, logger), nil
}

// NewGoogleCalendarSourceFromService wraps an existing calendar service
func NewGoogleCalendarSourceFromService(srv *gcal.Service, calendarID string, logger *zap.Logger) *GoogleCalendarSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleCalendarSource{srv: srv, calendarID: calendarID, logger: logger}
}

// ListFixedEvents returns the timed events of date, clipped to the day
func (s *GoogleCalendarSource) ListFixedEvents(ctx context.Context, date models.Date, loc *time.Location) ([]models.FixedEvent, error) {
	if loc == nil {
		loc = time.UTC
	}
	dayStart := date.In(loc)
	dayEnd := date.AddDays(1).In(loc)

	events, err := s.srv.Events.List(s.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}

	fixed := make([]models.FixedEvent, 0, len(events.Items))
	for _, ev := range events.Items {
		fe, ok, err := eventToFixed(ev, dayStart, dayEnd)
		if err != nil {
			s.logger.Warn("calendar_event_skipped", zap.String("event_id", ev.Id), zap.Error(err))
			continue
		}
		if ok {
			fixed = append(fixed, fe)
		}
	}
	return fixed, nil
}

// eventToFixed converts a calendar event into the part of it that falls
// within [dayStart, dayEnd). All-day, cancelled and free events are skipped.
func eventToFixed(ev *gcal.Event, dayStart, dayEnd time.Time) (models.FixedEvent, bool, error) {
	if ev == nil || ev.Start == nil || ev.End == nil {
		return models.FixedEvent{}, false, nil
	}
	if ev.Status == "cancelled" || ev.Transparency == "transparent" {
		return models.FixedEvent{}, false, nil
	}
	if ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return models.FixedEvent{}, false, nil
	}

	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return models.FixedEvent{}, false, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return models.FixedEvent{}, false, fmt.Errorf("invalid end time: %w", err)
	}
	if !end.After(dayStart) || !start.Before(dayEnd) || end.Before(start) {
		return models.FixedEvent{}, false, nil
	}

	if start.Before(dayStart) {
		start = dayStart
	}
	if end.After(dayEnd) {
		end = dayEnd
	}

	name := ev.Summary
	if name == "" {
		name = busyLabel
	}
	return models.FixedEvent{
		ID:        ev.Id,
		Name:      name,
		StartTime: models.ClockTime(start.Sub(dayStart) / time.Minute).Clamp(models.MinClock, models.MaxClock),
		EndTime:   models.ClockTime(end.Sub(dayStart) / time.Minute),
	}, true, nil
}

// AuthCodeURL returns the consent page URL for the installed-app flow
func AuthCodeURL(config *oauth2.Config) string {
	return config.AuthCodeURL("tasklazy", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeAndSave trades an authorization code for a token and stores it at tokenFile
func ExchangeAndSave(ctx context.Context, config *oauth2.Config, code, tokenFile string) error {
	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from Google: %w", err)
	}
	return SaveToken(tokenFile, tok)
}

// TokenFromFile reads an oauth2.Token from a JSON file
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes tok to path, creating the directory if needed
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

var _ FixedEventSource = (*GoogleCalendarSource)(nil)
