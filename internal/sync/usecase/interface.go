package usecase

import (
	"context"
	"time"

	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/pkg/ai"
)

// MailProvider is a user-bound mailbox: the candidate window for one run.
type MailProvider interface {
	// GetRecentEmails returns inbox messages from the last lookbackDays days,
	// capped at maxMessages.
	GetRecentEmails(ctx context.Context, lookbackDays, maxMessages int) ([]*syncdomain.EmailMessage, error)
	// GetEmailByID fetches one message. Returns (nil, nil) when it no longer
	// exists.
	GetEmailByID(ctx context.Context, emailID string) (*syncdomain.EmailMessage, error)
}

// CalendarProvider is a user-bound calendar target.
type CalendarProvider interface {
	// EnsureCalendar verifies calendarID, creating the dedicated calendar when
	// the ID is empty or no longer resolves. Returns the ID to use this run.
	EnsureCalendar(ctx context.Context, calendarID string) (string, error)
	// InsertEvent writes one event and returns the provider's event ID.
	InsertEvent(ctx context.Context, calendarID string, event *syncdomain.Event) (string, error)
}

// EventExtractor runs one logical extraction with retry policy already
// applied: it never fails, it only returns fewer events.
type EventExtractor interface {
	ExtractEvents(ctx context.Context, email ai.EmailContent, progress ai.ProgressFunc) ([]ai.ExtractedEvent, ai.TokenUsage)
}

// UserStore persists the per-user sync bookkeeping the worker updates.
type UserStore interface {
	SaveCalendarID(userID, calendarID string) error
	StampLastSync(userID string, t time.Time) error
}

// ProgressEvent is one structured progress notification.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ProgressObserver receives advisory progress events during a run. Observer
// behavior never affects the run's outcome.
type ProgressObserver interface {
	Notify(event ProgressEvent)
}

// SyncOptions bounds the candidate message window for one run.
type SyncOptions struct {
	LookbackDays int
	MaxEmails    int
}
