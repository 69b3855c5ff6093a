package ai

import (
	"context"
	"errors"
)

// ExtractedEvent is one candidate event produced by the extraction model.
// Every field is untrusted: the model may omit, null out, or mangle any of
// them, and the sync pipeline validates before use.
type ExtractedEvent struct {
	Title         string `json:"title"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
	Location      string `json:"location,omitempty"`
	Description   string `json:"description,omitempty"`
	RSVPRequired  bool   `json:"rsvp_required"`
	RSVPLink      string `json:"rsvp_link,omitempty"`
}

// TokenUsage reports model token consumption for one extraction call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// EmailContent is the slice of an email the extraction model sees.
type EmailContent struct {
	Subject string
	Sender  string
	Body    string
}

// Extraction failures are classified at the provider boundary so callers
// never have to inspect error strings.
var (
	// ErrRateLimited marks a transient quota rejection; the caller may retry.
	ErrRateLimited = errors.New("ai: rate limited")
	// ErrMalformed marks a response that could not be parsed into events.
	ErrMalformed = errors.New("ai: malformed model response")
)

// EventExtractor is a single-shot extraction call against the model.
// Implement this interface to add new AI providers (Gemini, OpenAI, etc.).
type EventExtractor interface {
	ExtractEvents(ctx context.Context, email EmailContent) ([]ExtractedEvent, TokenUsage, error)
}

// ProgressFunc receives live progress while an extraction call waits out a
// rate limit. May be nil.
type ProgressFunc func(stage string, current, total int, message string)
