package domain

import "time"

// CalendarEvent is a row for every event the sync pipeline ever wrote to the
// user's calendar. It doubles as the duplicate ledger: before inserting a new
// event, the pipeline looks here for a matching title and start time.
type CalendarEvent struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"not null;uniqueIndex:idx_calendar_user_gcal_event"`
	ProcessedEmailID string    `json:"processed_email_id" gorm:"index"`
	GoogleEventID    string    `json:"google_event_id" gorm:"not null;uniqueIndex:idx_calendar_user_gcal_event"`
	GoogleCalendarID string    `json:"google_calendar_id"`
	EventTitle       string    `json:"event_title" gorm:"not null"`
	StartDatetime    time.Time `json:"start_datetime" gorm:"not null"`
	EndDatetime      time.Time `json:"end_datetime"`
	Location         string    `json:"location"`
	Description      string    `json:"description"`
	RSVPRequired     bool      `json:"rsvp_required"`
	RSVPLink         string    `json:"rsvp_link"`
	IsCanceled       bool      `json:"is_canceled" gorm:"default:false"`
	// UserDeleted marks events the user removed from their calendar by hand.
	// Deleted rows stay in the ledger but no longer block re-creation.
	UserDeleted bool      `json:"user_deleted" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
