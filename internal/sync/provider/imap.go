package provider

import (
	"context"
	"errors"
	"fmt"

	authdomain "sift-backend/internal/auth/domain"
	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/pkg/imap"
	"sift-backend/pkg/utils/crypto"
)

// IMAPMail is the mail side of a sync run for users on a non-Gmail mailbox.
type IMAPMail struct {
	svc      *imap.Service
	host     string
	port     int
	username string
	password string
}

func NewIMAPMail(svc *imap.Service, user *authdomain.User, encryptionKey string) (*IMAPMail, error) {
	if user.IMAPHost == "" {
		return nil, errors.New("user has no IMAP account configured")
	}
	password, err := crypto.Decrypt(user.IMAPPassword, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting IMAP password: %w", err)
	}
	return &IMAPMail{
		svc:      svc,
		host:     user.IMAPHost,
		port:     user.IMAPPort,
		username: user.IMAPUsername,
		password: password,
	}, nil
}

func (m *IMAPMail) GetRecentEmails(ctx context.Context, lookbackDays, maxMessages int) ([]*syncdomain.EmailMessage, error) {
	_ = ctx
	return m.svc.GetRecentEmails(m.host, m.port, m.username, m.password, lookbackDays, maxMessages)
}

func (m *IMAPMail) GetEmailByID(ctx context.Context, emailID string) (*syncdomain.EmailMessage, error) {
	_ = ctx
	return m.svc.GetEmailByID(m.host, m.port, m.username, m.password, emailID)
}
