package domain

import (
	"strings"
	"time"
)

// Event is an extracted calendar event after normalization: concrete times
// in the calendar's timezone and a description carrying provenance.
type Event struct {
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	RSVPRequired bool      `json:"rsvp_required"`
	RSVPLink     string    `json:"rsvp_link"`
}

// DedupKey identifies an event for duplicate detection within a run and
// against the persisted ledger: case- and whitespace-insensitive title plus
// the exact start time.
func (e Event) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(e.Title)) + "|" + e.Start.Format(time.RFC3339)
}
