package imap

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	syncdomain "sift-backend/internal/sync/domain"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Service fetches inbox messages over IMAP for accounts that are not Gmail.
// It covers only what the sync pipeline needs: recent-message retrieval and
// single-message lookup.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) connect(host string, port int, username, password string) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if err := c.Login(username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	return c, nil
}

// GetRecentEmails retrieves inbox messages received in the last lookbackDays
// days, newest first, capped at maxMessages.
func (s *Service) GetRecentEmails(host string, port int, username, password string, lookbackDays, maxMessages int) ([]*syncdomain.EmailMessage, error) {
	c, err := s.connect(host, port, username, password)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().AddDate(0, 0, -lookbackDays)

	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching INBOX: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Newest messages have the highest sequence numbers.
	if maxMessages > 0 && len(ids) > maxMessages {
		ids = ids[len(ids)-maxMessages:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var result []*syncdomain.EmailMessage
	for msg := range messages {
		converted, err := convertMessage(msg, section)
		if err != nil {
			log.Printf("[IMAP] Skipping message %d: %v", msg.SeqNum, err)
			continue
		}
		result = append(result, converted)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	// Reverse so the newest message comes first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return result, nil
}

// GetEmailByID retrieves a single message by its IMAP UID.
func (s *Service) GetEmailByID(host string, port int, username, password, emailID string) (*syncdomain.EmailMessage, error) {
	c, err := s.connect(host, port, username, password)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	var uid uint32
	if _, err := fmt.Sscanf(emailID, "%d", &uid); err != nil {
		return nil, fmt.Errorf("invalid IMAP UID %q: %w", emailID, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var found *syncdomain.EmailMessage
	for msg := range messages {
		converted, err := convertMessage(msg, section)
		if err != nil {
			return nil, err
		}
		found = converted
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching message: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("message %s not found", emailID)
	}
	return found, nil
}

func convertMessage(msg *imap.Message, section *imap.BodySectionName) (*syncdomain.EmailMessage, error) {
	out := &syncdomain.EmailMessage{
		ID: fmt.Sprintf("%d", msg.Uid),
	}

	if msg.Envelope != nil {
		out.Subject = msg.Envelope.Subject
		out.Date = msg.Envelope.Date.Format(time.RFC1123Z)
		if len(msg.Envelope.From) > 0 {
			out.Sender = msg.Envelope.From[0].Address()
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return out, nil
	}

	mr, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing message body: %w", err)
	}

	var plain, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading message part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch contentType {
		case "text/plain":
			if plain == "" {
				plain = string(data)
			}
		case "text/html":
			if html == "" {
				html = string(data)
			}
		}
	}

	if plain != "" {
		out.Body = plain
	} else {
		out.Body = strings.Join(strings.Fields(html), " ")
	}
	return out, nil
}
