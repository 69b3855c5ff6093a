package usecase

import (
	"strings"
	"testing"
	"time"

	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/pkg/ai"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer("America/Los_Angeles")
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	return n
}

var testMessage = &syncdomain.EmailMessage{
	ID:      "msg-123",
	Subject: "Quarterly planning",
	Sender:  "pm@example.com",
}

func TestNormalizeRejectsMissingStart(t *testing.T) {
	n := newTestNormalizer(t)

	for _, start := range []string{"", "null", "None", "next Tuesday-ish"} {
		raw := ai.ExtractedEvent{Title: "Planning", StartDatetime: start}
		if _, ok := n.Normalize(raw, testMessage); ok {
			t.Errorf("start %q: expected rejection", start)
		}
	}
}

func TestNormalizeRejectsMissingTitle(t *testing.T) {
	n := newTestNormalizer(t)

	for _, title := range []string{"", "   ", "\t\n"} {
		raw := ai.ExtractedEvent{Title: title, StartDatetime: "2026-10-01T14:00:00"}
		if _, ok := n.Normalize(raw, testMessage); ok {
			t.Errorf("title %q: expected rejection", title)
		}
	}
}

func TestNormalizeDefaultsMissingEnd(t *testing.T) {
	n := newTestNormalizer(t)

	raw := ai.ExtractedEvent{Title: "Planning", StartDatetime: "2026-10-01T14:00:00"}
	event, ok := n.Normalize(raw, testMessage)
	if !ok {
		t.Fatal("expected acceptance")
	}
	if got := event.End.Sub(event.Start); got != time.Hour {
		t.Fatalf("end - start = %s, want 1h", got)
	}
}

func TestNormalizeClampsEndBeforeStart(t *testing.T) {
	n := newTestNormalizer(t)

	raw := ai.ExtractedEvent{
		Title:         "Planning",
		StartDatetime: "2026-10-01T14:00:00",
		EndDatetime:   "2026-10-01T09:00:00",
	}
	event, ok := n.Normalize(raw, testMessage)
	if !ok {
		t.Fatal("expected acceptance")
	}
	if got := event.End.Sub(event.Start); got != time.Hour {
		t.Fatalf("malformed end should default to start+1h, got span %s", got)
	}
}

func TestNormalizeInterpretsTimesInConfiguredZone(t *testing.T) {
	n := newTestNormalizer(t)
	loc, _ := time.LoadLocation("America/Los_Angeles")

	raw := ai.ExtractedEvent{Title: "Planning", StartDatetime: "2026-10-01T14:00:00", EndDatetime: "2026-10-01T15:30:00"}
	event, ok := n.Normalize(raw, testMessage)
	if !ok {
		t.Fatal("expected acceptance")
	}
	want := time.Date(2026, 10, 1, 14, 0, 0, 0, loc)
	if !event.Start.Equal(want) {
		t.Fatalf("start = %v, want %v", event.Start, want)
	}
}

func TestNormalizeAppendsProvenance(t *testing.T) {
	n := newTestNormalizer(t)

	raw := ai.ExtractedEvent{Title: "Planning", StartDatetime: "2026-10-01T14:00:00", Description: "Agenda attached"}
	event, ok := n.Normalize(raw, testMessage)
	if !ok {
		t.Fatal("expected acceptance")
	}
	if !strings.Contains(event.Description, "Agenda attached") {
		t.Errorf("original description dropped: %q", event.Description)
	}
	if !strings.Contains(event.Description, testMessage.Subject) {
		t.Errorf("description missing source subject: %q", event.Description)
	}
	if !strings.Contains(event.Description, testMessage.ID) {
		t.Errorf("description missing source message link: %q", event.Description)
	}
}

func TestNormalizeAppendsRSVPNotice(t *testing.T) {
	n := newTestNormalizer(t)

	raw := ai.ExtractedEvent{
		Title:         "Gala",
		StartDatetime: "2026-10-01T19:00:00",
		RSVPRequired:  true,
		RSVPLink:      "https://example.com/rsvp",
	}
	event, ok := n.Normalize(raw, testMessage)
	if !ok {
		t.Fatal("expected acceptance")
	}
	if !strings.Contains(event.Description, "RSVP Required") {
		t.Errorf("missing RSVP notice: %q", event.Description)
	}
	if !strings.Contains(event.Description, "https://example.com/rsvp") {
		t.Errorf("missing RSVP link: %q", event.Description)
	}
}

func TestStartsBeforeToday(t *testing.T) {
	n := newTestNormalizer(t)
	loc, _ := time.LoadLocation("America/Los_Angeles")
	now := time.Date(2026, 9, 15, 8, 30, 0, 0, loc)

	cases := []struct {
		start string
		want  bool
	}{
		{"2026-09-14T23:59:00", true},
		{"2026-09-15T00:00:00", false},
		{"2026-09-15T06:00:00", false}, // earlier today, but same calendar date
		{"2026-09-16T09:00:00", false},
		{"not a date", false},
		{"", false},
	}
	for _, c := range cases {
		raw := ai.ExtractedEvent{Title: "x", StartDatetime: c.start}
		if got := n.StartsBeforeToday(raw, now); got != c.want {
			t.Errorf("StartsBeforeToday(%q) = %v, want %v", c.start, got, c.want)
		}
	}
}
