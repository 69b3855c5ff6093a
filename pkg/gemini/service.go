package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"sift-backend/pkg/ai"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Service extracts calendar events from email text using the Gemini API.
// It implements ai.EventExtractor; retry policy lives in the caller.
type Service struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewService(apiKey, model string) *Service {
	return &Service{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the service at a different API host. Used by tests.
func (s *Service) WithBaseURL(baseURL string) *Service {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Model reports which model the service bills against.
func (s *Service) Model() string {
	return s.model
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type extractionResult struct {
	Events []ai.ExtractedEvent `json:"events"`
}

// ExtractEvents asks the model for every event mentioned in the email and
// returns them with the token usage of the call. A 429 from the API comes
// back wrapped in ai.ErrRateLimited; an unparseable model response comes
// back wrapped in ai.ErrMalformed.
func (s *Service) ExtractEvents(ctx context.Context, email ai.EmailContent) ([]ai.ExtractedEvent, ai.TokenUsage, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)

	reqBody := generateRequest{
		SystemInstruction: &content{Parts: []part{{
			Text: "You are an expert at extracting event information from emails. Always return valid JSON.",
		}}},
		Contents: []content{{Parts: []part{{Text: buildExtractionPrompt(email)}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 10000,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, ai.TokenUsage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, ai.TokenUsage{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ai.TokenUsage{}, fmt.Errorf("calling Gemini API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.TokenUsage{}, fmt.Errorf("reading Gemini response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ai.TokenUsage{}, fmt.Errorf("gemini API returned 429: %w", ai.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ai.TokenUsage{}, fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, ai.TokenUsage{}, fmt.Errorf("decoding API envelope: %w", ai.ErrMalformed)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, ai.TokenUsage{}, fmt.Errorf("no candidates returned: %w", ai.ErrMalformed)
	}

	usage := ai.TokenUsage{
		InputTokens:  result.UsageMetadata.PromptTokenCount,
		OutputTokens: result.UsageMetadata.CandidatesTokenCount,
	}

	text := stripCodeFences(result.Candidates[0].Content.Parts[0].Text)

	var extracted extractionResult
	if err := json.Unmarshal([]byte(text), &extracted); err != nil {
		log.Printf("[Gemini] Unparseable model output for %q: %v", email.Subject, err)
		return nil, usage, fmt.Errorf("decoding extraction JSON: %w", ai.ErrMalformed)
	}

	log.Printf("[Gemini] Extracted %d event(s) from email: %s (%d in, %d out tokens)",
		len(extracted.Events), email.Subject, usage.InputTokens, usage.OutputTokens)

	return extracted.Events, usage, nil
}

// stripCodeFences removes a surrounding markdown code block, which the model
// adds despite being told to return bare JSON.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func buildExtractionPrompt(email ai.EmailContent) string {
	currentYear := time.Now().Year()

	return fmt.Sprintf(`Extract ALL event information from this email. Be concise.

EMAIL:
Subject: %s
From: %s
Body: %s

CRITICAL: Extract EVERY event mentioned. If there are many events, still include all of them. However, ensure that the
events you extract are seemingly targetted to the email recipient, and not just mentioned in passing. For example, if
an email mentions a meeting won't happen because of some other event, do NOT extract that other event (the conflict). ALSO,
if an email doesn't include critical information about the event (e.g. no date or time), do NOT make up that information -
only extract what is clearly specified or can be reliably inferred. If the email does not contain this information,
it's likely because the event is not intended for the recipient.

Return ONLY valid JSON in this EXACT format (no additional text):
{
  "events": [
    {
      "title": "Event Name",
      "start_datetime": "YYYY-MM-DDTHH:MM:SS",
      "end_datetime": "YYYY-MM-DDTHH:MM:SS",
      "location": "Location",
      "description": "Brief description",
      "rsvp_required": false,
      "rsvp_link": null
    }
  ]
}

IMPORTANT:
- ALWAYS provide end_datetime. If not specified, estimate based on event type (e.g., 1 hour for meetings, 3 hours for parties).
- Keep descriptions under 50 words each.
- If no events found, return: {"events": []}
- Current year is %d. Assume Pacific time zone, unless the email specifies otherwise.
- Also very important, don't add events that have already happened (i.e., dates in the past).`,
		email.Subject, email.Sender, email.Body, currentYear)
}
