package provider

import (
	"context"
	"fmt"

	authdomain "sift-backend/internal/auth/domain"
	"sift-backend/internal/auth/repository"
	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/pkg/gcal"
	"sift-backend/pkg/gmail"
	"sift-backend/pkg/utils/crypto"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

// GoogleMail binds the Gmail client to one user's stored credentials,
// implementing the mail side of a sync run.
type GoogleMail struct {
	svc    *gmail.Service
	tokens *tokenBinding
}

// GoogleCalendar binds the Calendar client to one user's stored credentials.
type GoogleCalendar struct {
	svc    *gcal.Service
	tokens *tokenBinding
}

// tokenBinding holds a user's decrypted OAuth tokens and persists refreshed
// ones, re-encrypted, back to the user row.
type tokenBinding struct {
	accessToken  string
	refreshToken string
	onRefresh    syncdomain.TokenUpdateFunc
}

func newTokenBinding(user *authdomain.User, userRepo repository.UserRepository, encryptionKey string) (*tokenBinding, error) {
	access, err := crypto.Decrypt(user.GoogleAccessToken, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting access token: %w", err)
	}
	refresh, err := crypto.Decrypt(user.GoogleRefreshToken, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting refresh token: %w", err)
	}

	userID := user.ID
	return &tokenBinding{
		accessToken:  access,
		refreshToken: refresh,
		onRefresh: func(token *oauth2.Token) error {
			encAccess, err := crypto.Encrypt(token.AccessToken, encryptionKey)
			if err != nil {
				return err
			}
			encRefresh := ""
			if token.RefreshToken != "" {
				encRefresh, err = crypto.Encrypt(token.RefreshToken, encryptionKey)
				if err != nil {
					return err
				}
			}
			return userRepo.UpdateGoogleTokens(userID, encAccess, encRefresh)
		},
	}, nil
}

func NewGoogleMail(svc *gmail.Service, user *authdomain.User, userRepo repository.UserRepository, encryptionKey string) (*GoogleMail, error) {
	tokens, err := newTokenBinding(user, userRepo, encryptionKey)
	if err != nil {
		return nil, err
	}
	return &GoogleMail{svc: svc, tokens: tokens}, nil
}

func (m *GoogleMail) GetRecentEmails(ctx context.Context, lookbackDays, maxMessages int) ([]*syncdomain.EmailMessage, error) {
	return m.svc.GetRecentEmails(ctx, m.tokens.accessToken, m.tokens.refreshToken, lookbackDays, maxMessages, m.tokens.onRefresh)
}

func (m *GoogleMail) GetEmailByID(ctx context.Context, emailID string) (*syncdomain.EmailMessage, error) {
	return m.svc.GetEmailByID(ctx, m.tokens.accessToken, m.tokens.refreshToken, emailID, m.tokens.onRefresh)
}

// Watch starts Gmail push notifications to the given Pub/Sub topic.
func (m *GoogleMail) Watch(ctx context.Context, topicName string) error {
	return m.svc.Watch(ctx, m.tokens.accessToken, m.tokens.refreshToken, topicName, m.tokens.onRefresh)
}

// StopWatch stops Gmail push notifications.
func (m *GoogleMail) StopWatch(ctx context.Context) error {
	return m.svc.Stop(ctx, m.tokens.accessToken, m.tokens.refreshToken, m.tokens.onRefresh)
}

func NewGoogleCalendar(svc *gcal.Service, user *authdomain.User, userRepo repository.UserRepository, encryptionKey string) (*GoogleCalendar, error) {
	tokens, err := newTokenBinding(user, userRepo, encryptionKey)
	if err != nil {
		return nil, err
	}
	return &GoogleCalendar{svc: svc, tokens: tokens}, nil
}

func (c *GoogleCalendar) EnsureCalendar(ctx context.Context, calendarID string) (string, error) {
	return c.svc.EnsureCalendar(ctx, c.tokens.accessToken, c.tokens.refreshToken, calendarID, c.tokens.onRefresh)
}

func (c *GoogleCalendar) InsertEvent(ctx context.Context, calendarID string, event *syncdomain.Event) (string, error) {
	return c.svc.InsertEvent(ctx, c.tokens.accessToken, c.tokens.refreshToken, calendarID, event, c.tokens.onRefresh)
}

// ListUpcoming reads upcoming events straight from the provider calendar.
// Reporting only; dedup decisions come from the local ledger.
func (c *GoogleCalendar) ListUpcoming(ctx context.Context, calendarID string, maxResults int) ([]*calendar.Event, error) {
	return c.svc.ListUpcomingEvents(ctx, c.tokens.accessToken, c.tokens.refreshToken, calendarID, maxResults, c.tokens.onRefresh)
}
