package repository

import (
	"time"

	syncdomain "sift-backend/internal/sync/domain"
)

// CalendarEventRepository defines the interface for the created-event ledger
type CalendarEventRepository interface {
	// Record a newly created calendar event
	Create(event *syncdomain.CalendarEvent) error
	// Find a previously created event with the same title and start time.
	// Rows the user deleted by hand do not count. Returns (nil, nil) when
	// there is no match.
	FindDuplicate(userID, title string, start time.Time) (*syncdomain.CalendarEvent, error)
	// Mark an event as deleted by the user so it stops blocking re-creation
	MarkUserDeleted(userID, eventID string) error
	// List events created for a user, newest start first
	ListByUser(userID string, limit int) ([]*syncdomain.CalendarEvent, error)
}
