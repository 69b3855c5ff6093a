package domain

import "time"

// Processing outcomes recorded on a ProcessedEmail row.
const (
	ProcessingStatusSuccess = "success"
	ProcessingStatusPartial = "partial"
	ProcessingStatusError   = "error"
)

// ProcessedEmail records that a sync run already handled a given inbox
// message for a user. Exactly one row exists per (user, email) pair; its
// presence makes reprocessing a no-op on later runs.
type ProcessedEmail struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"not null;uniqueIndex:idx_processed_user_email_unique"`
	EmailID          string    `json:"email_id" gorm:"not null;uniqueIndex:idx_processed_user_email_unique"`
	Subject          string    `json:"subject"`
	Sender           string    `json:"sender"`
	EventCreated     bool      `json:"event_created" gorm:"default:false"`
	EventsCount      int       `json:"events_count"`
	ProcessingStatus string    `json:"processing_status" gorm:"default:success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ProcessedAt      time.Time `json:"processed_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
