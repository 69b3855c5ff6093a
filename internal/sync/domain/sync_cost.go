package domain

import "time"

// SyncCost is one billing line per sync run: what the run spent on
// extraction tokens and how many API calls it made along the way.
type SyncCost struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	UserID           string    `json:"user_id" gorm:"index;not null"`
	Model            string    `json:"model"`
	EmailsProcessed  int       `json:"emails_processed"`
	EventsExtracted  int       `json:"events_extracted"`
	InputTokens      int       `json:"input_tokens"`
	OutputTokens     int       `json:"output_tokens"`
	GmailAPICalls    int       `json:"gmail_api_calls"`
	CalendarAPICalls int       `json:"calendar_api_calls"`
	CostUSD          float64   `json:"cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}
