package gcal

import (
	"context"
	"fmt"
	"log"
	"time"

	syncdomain "sift-backend/internal/sync/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarName is the summary of the dedicated calendar the sync pipeline
// writes to. Events never land on the user's primary calendar.
const CalendarName = "Sift - Inbox Events"

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = syncdomain.TokenUpdateFunc

type Service struct {
	clientID     string
	clientSecret string
	timezone     string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Calendar] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret, timezone string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		timezone:     timezone,
	}
}

// GetCalendarService creates a Calendar API client with user's access token
func (s *Service) GetCalendarService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*calendar.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	return srv, nil
}

// EnsureCalendar verifies that calendarID still exists, creating the
// dedicated calendar when the ID is empty or stale. It returns the calendar
// ID to use for this run; the caller persists it when it changed.
func (s *Service) EnsureCalendar(ctx context.Context, accessToken, refreshToken, calendarID string, onTokenRefresh TokenUpdateFunc) (string, error) {
	srv, err := s.GetCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return "", err
	}

	if calendarID != "" {
		if _, err := srv.Calendars.Get(calendarID).Do(); err == nil {
			return calendarID, nil
		}
		log.Printf("[Calendar] Calendar %s no longer exists, creating a new one", calendarID)
	}

	created, err := srv.Calendars.Insert(&calendar.Calendar{
		Summary:     CalendarName,
		Description: "Events automatically extracted from your email inbox",
		TimeZone:    s.timezone,
	}).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create calendar: %w", err)
	}

	log.Printf("[Calendar] Created calendar: %s", created.Id)
	return created.Id, nil
}

// InsertEvent writes one event to the given calendar and returns its ID.
func (s *Service) InsertEvent(ctx context.Context, accessToken, refreshToken, calendarID string, event *syncdomain.Event, onTokenRefresh TokenUpdateFunc) (string, error) {
	srv, err := s.GetCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return "", err
	}

	body := &calendar.Event{
		Summary:     event.Title,
		Location:    event.Location,
		Description: event.Description,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: s.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: s.timezone,
		},
	}

	created, err := srv.Events.Insert(calendarID, body).Do()
	if err != nil {
		return "", fmt.Errorf("unable to insert event: %w", err)
	}

	log.Printf("[Calendar] Created event: %s - %s", created.Summary, created.Id)
	return created.Id, nil
}

// DeleteEvent removes an event from the given calendar.
func (s *Service) DeleteEvent(ctx context.Context, accessToken, refreshToken, calendarID, eventID string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if err := srv.Events.Delete(calendarID, eventID).Do(); err != nil {
		return fmt.Errorf("unable to delete event: %w", err)
	}

	return nil
}

// ListUpcomingEvents returns upcoming events on the given calendar, ordered
// by start time.
func (s *Service) ListUpcomingEvents(ctx context.Context, accessToken, refreshToken, calendarID string, maxResults int, onTokenRefresh TokenUpdateFunc) ([]*calendar.Event, error) {
	srv, err := s.GetCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	if maxResults <= 0 {
		maxResults = 10
	}

	resp, err := srv.Events.List(calendarID).
		TimeMin(time.Now().Format(time.RFC3339)).
		MaxResults(int64(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list events: %w", err)
	}

	return resp.Items, nil
}
