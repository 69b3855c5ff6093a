package usecase

import (
	"fmt"
	"log"
	"strings"
	"time"

	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/pkg/ai"
)

const defaultEventDuration = time.Hour

// datetimeLayouts are the formats extraction output shows up in. The prompt
// asks for the first; the model occasionally returns full RFC 3339 anyway.
var datetimeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalizer turns raw extracted events into calendar-ready ones. All times
// are interpreted in one configured display timezone.
type Normalizer struct {
	loc *time.Location
}

func NewNormalizer(timezone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// parseDatetime interprets a raw model-produced timestamp in the configured
// zone. Literal "null"/"None" strings count as absent.
func (n *Normalizer) parseDatetime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "None" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, n.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartsBeforeToday reports whether a raw event's start date is strictly
// before today's date in the configured zone. Events with unparseable starts
// are not past: they fall through to Normalize, which rejects them.
func (n *Normalizer) StartsBeforeToday(raw ai.ExtractedEvent, now time.Time) bool {
	start, ok := n.parseDatetime(raw.StartDatetime)
	if !ok {
		return false
	}
	y, m, d := now.In(n.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, n.loc)
	return start.Before(today)
}

// Normalize validates a raw event against its source message. A missing
// title or a missing or unparseable start rejects the event; a missing or
// unparseable end defaults to one hour after the start. Rejection is a skip,
// not an error.
func (n *Normalizer) Normalize(raw ai.ExtractedEvent, source *syncdomain.EmailMessage) (*syncdomain.Event, bool) {
	if strings.TrimSpace(raw.Title) == "" {
		log.Printf("[Normalizer] Event from %q has no title, skipping", source.Subject)
		return nil, false
	}

	start, ok := n.parseDatetime(raw.StartDatetime)
	if !ok {
		log.Printf("[Normalizer] Event %q has no usable start time, skipping", raw.Title)
		return nil, false
	}

	end, ok := n.parseDatetime(raw.EndDatetime)
	if !ok || end.Before(start) {
		end = start.Add(defaultEventDuration)
	}

	var desc strings.Builder
	desc.WriteString(raw.Description)
	desc.WriteString(fmt.Sprintf("\n\nFrom email: %s\nhttps://mail.google.com/mail/u/0/#inbox/%s", source.Subject, source.ID))
	if raw.RSVPRequired {
		desc.WriteString("\n\n⚠️ RSVP Required")
		if raw.RSVPLink != "" {
			desc.WriteString("\nRSVP: " + raw.RSVPLink)
		}
	}

	return &syncdomain.Event{
		Title:        raw.Title,
		Start:        start,
		End:          end,
		Location:     raw.Location,
		Description:  desc.String(),
		RSVPRequired: raw.RSVPRequired,
		RSVPLink:     raw.RSVPLink,
	}, true
}
