package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sift-backend/pkg/ai"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewService("test-key", "gemini-2.5-flash").WithBaseURL(server.URL)
}

func candidateResponse(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
		"usageMetadata": map[string]any{
			"promptTokenCount":     231,
			"candidatesTokenCount": 58,
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestExtractEventsParsesFencedJSON(t *testing.T) {
	model := "```json\n{\"events\": [{\"title\": \"Team Offsite\", \"start_datetime\": \"2026-09-12T09:00:00\", \"end_datetime\": \"2026-09-12T17:00:00\", \"location\": \"Marin\", \"description\": \"All hands offsite\", \"rsvp_required\": true, \"rsvp_link\": \"https://example.com/rsvp\"}]}\n```"

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(candidateResponse(model)))
	})

	events, usage, err := svc.ExtractEvents(context.Background(), ai.EmailContent{Subject: "Offsite"})
	if err != nil {
		t.Fatalf("ExtractEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Title != "Team Offsite" || ev.StartDatetime != "2026-09-12T09:00:00" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if !ev.RSVPRequired || ev.RSVPLink != "https://example.com/rsvp" {
		t.Errorf("rsvp fields not parsed: %+v", ev)
	}
	if usage.InputTokens != 231 || usage.OutputTokens != 58 {
		t.Errorf("usage = %+v, want 231/58", usage)
	}
}

func TestExtractEventsNullRSVPLink(t *testing.T) {
	model := `{"events": [{"title": "Standup", "start_datetime": "2026-09-03T10:00:00", "end_datetime": null, "location": null, "description": "Daily standup", "rsvp_required": false, "rsvp_link": null}]}`

	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateResponse(model)))
	})

	events, _, err := svc.ExtractEvents(context.Background(), ai.EmailContent{})
	if err != nil {
		t.Fatalf("ExtractEvents: %v", err)
	}
	if len(events) != 1 || events[0].EndDatetime != "" || events[0].RSVPLink != "" {
		t.Fatalf("null fields should decode to empty strings: %+v", events)
	}
}

func TestExtractEventsRateLimited(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 429}}`, http.StatusTooManyRequests)
	})

	_, _, err := svc.ExtractEvents(context.Background(), ai.EmailContent{})
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestExtractEventsMalformedModelOutput(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateResponse("Sure! Here are the events I found:")))
	})

	_, _, err := svc.ExtractEvents(context.Background(), ai.EmailContent{})
	if !errors.Is(err, ai.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestExtractEventsServerError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, _, err := svc.ExtractEvents(context.Background(), ai.EmailContent{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ai.ErrRateLimited) || errors.Is(err, ai.ErrMalformed) {
		t.Fatalf("5xx must not classify as rate-limit or malformed: %v", err)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"events\": []}", "{\"events\": []}"},
		{"```json\n{\"events\": []}\n```", "{\"events\": []}"},
		{"```\n{\"events\": []}\n```", "{\"events\": []}"},
		{"  {\"events\": []}  ", "{\"events\": []}"},
	}
	for _, c := range cases {
		if got := stripCodeFences(c.in); got != c.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
