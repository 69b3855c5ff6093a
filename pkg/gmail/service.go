package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	syncdomain "sift-backend/internal/sync/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = syncdomain.TokenUpdateFunc

type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// GetGmailService creates Gmail service with user's access token
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := config.TokenSource(ctx, token)

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      tokenSource,
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return srv, nil
}

// GetRecentEmails retrieves inbox messages from the last lookbackDays days,
// skipping trash, archived mail, and the promotions/social categories.
// Per-message fetch failures are logged and skipped rather than failing the
// whole scan.
func (s *Service) GetRecentEmails(ctx context.Context, accessToken, refreshToken string, lookbackDays, maxMessages int, onTokenRefresh TokenUpdateFunc) ([]*syncdomain.EmailMessage, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	after := time.Now().AddDate(0, 0, -lookbackDays).Format("2006/01/02")
	query := fmt.Sprintf("after:%s -in:trash -is:archived -category:promotions -category:social", after)

	listCall := srv.Users.Messages.List("me").Q(query)
	if maxMessages > 0 {
		listCall = listCall.MaxResults(int64(maxMessages))
	}

	resp, err := listCall.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	messages := make([]*syncdomain.EmailMessage, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		full, err := srv.Users.Messages.Get("me", msg.Id).Format("full").Do()
		if err != nil {
			log.Printf("[Gmail] Skipping message %s: %v", msg.Id, err)
			continue
		}
		messages = append(messages, convertMessage(full))
	}

	log.Printf("[Gmail] Fetched %d message(s) matching %q", len(messages), query)
	return messages, nil
}

// GetEmailByID retrieves a specific email by ID
func (s *Service) GetEmailByID(ctx context.Context, accessToken, refreshToken, emailID string, onTokenRefresh TokenUpdateFunc) (*syncdomain.EmailMessage, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", emailID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %w", err)
	}

	return convertMessage(msg), nil
}

// Watch sets up push notifications for the user's mailbox
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken string, topicName string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	// Clear any existing watch first: Gmail allows only one push client per user.
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	resp, err := srv.Users.Watch("me", req).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Printf("[Gmail] Watch started. Expiration: %d, HistoryId: %d", resp.Expiration, resp.HistoryId)

	return nil
}

// Stop stops push notifications for the user's mailbox
func (s *Service) Stop(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop("me").Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}

	return nil
}

// Helper functions

func convertMessage(msg *gmail.Message) *syncdomain.EmailMessage {
	return &syncdomain.EmailMessage{
		ID:      msg.Id,
		Subject: getHeader(msg.Payload.Headers, "Subject"),
		Sender:  getHeader(msg.Payload.Headers, "From"),
		Date:    getHeader(msg.Payload.Headers, "Date"),
		Snippet: msg.Snippet,
		Body:    getEmailBody(msg.Payload),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

// getEmailBody extracts a plain-text body from the message, preferring
// text/plain parts and falling back to stripped HTML.
func getEmailBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			if payload.MimeType == "text/html" {
				return stripHTML(string(data))
			}
			return string(data)
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil && plainBody == "" {
					plainBody = string(data)
				}
			} else if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil && htmlBody == "" {
					htmlBody = string(data)
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody
	}
	return stripHTML(htmlBody)
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(body string) string {
	text := htmlTagRe.ReplaceAllString(body, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	return strings.Join(strings.Fields(text), " ")
}

// ValidateToken validates the access token by making a simple API call
func (s *Service) ValidateToken(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	if _, err := srv.Users.GetProfile("me").Do(); err != nil {
		return fmt.Errorf("invalid or expired access token: %w", err)
	}

	return nil
}
