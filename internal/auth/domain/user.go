package domain

import "time"

type User struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`

	// Google OAuth tokens used for Gmail and Calendar access. Encrypted at
	// rest; never serialized.
	GoogleAccessToken  string `json:"-"`
	GoogleRefreshToken string `json:"-"`

	// Optional IMAP account for mailboxes outside Gmail. Password encrypted
	// at rest.
	IMAPHost     string `json:"imap_host,omitempty"`
	IMAPPort     int    `json:"imap_port,omitempty"`
	IMAPUsername string `json:"imap_username,omitempty"`
	IMAPPassword string `json:"-"`

	// SiftCalendarID is the dedicated calendar sync writes to; empty until
	// the first run creates it.
	SiftCalendarID string     `json:"sift_calendar_id"`
	LastSyncAt     *time.Time `json:"last_sync_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
