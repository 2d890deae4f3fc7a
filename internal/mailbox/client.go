// Package mailbox polls an IMAP account and imports unseen emails as
// contact messages.
package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"

	"github.com/nckexchange/exchange/internal/config"
)

// Fallback values for emails with missing envelope or body parts.
const (
	UnknownSenderName = "Unknown"
	UnknownSenderAddr = "unknown@email.com"
	EmptyBodyText     = "No content found."
)

// Email is one unseen mailbox message reduced to the fields the importer
// persists.
type Email struct {
	UID        imap.UID
	SenderName string
	SenderAddr string
	Body       string
	Date       time.Time
}

// Session is an authenticated connection to the configured mailbox folder.
type Session interface {
	Unseen(ctx context.Context) ([]Email, error)
	MarkSeen(ctx context.Context, uid imap.UID) error
	Close() error
}

// Dialer opens mailbox sessions. The importer holds a Dialer so runs stay
// testable without a live IMAP server.
type Dialer interface {
	Dial(ctx context.Context, cfg config.MailboxConfig) (Session, error)
}

// IMAPDialer connects to real IMAP servers via go-imap v2.
type IMAPDialer struct{}

// Dial connects, authenticates, and selects the configured folder
// read-write so seen flags can be stored.
func (IMAPDialer) Dial(_ context.Context, cfg config.MailboxConfig) (Session, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var client *imapclient.Client
	var err error
	if cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	if cfg.Auth == "plain" {
		err = client.Authenticate(sasl.NewPlainClient("", cfg.Username, cfg.Password))
	} else {
		err = client.Login(cfg.Username, cfg.Password).Wait()
	}
	if err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticate %s: %w", cfg.Username, err)
	}

	folder := cfg.Folder
	if folder == "" {
		folder = config.DefaultIMAPFolder
	}
	if _, err := client.Select(folder, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}

	return &imapSession{client: client}, nil
}

type imapSession struct {
	client *imapclient.Client
}

// Unseen searches for messages without the \Seen flag and fetches their
// envelope and body. Messages are fetched with Peek so the search stays
// stable until MarkSeen runs after a successful import.
func (s *imapSession) Unseen(_ context.Context) ([]Email, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var emails []Email
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		emails = append(emails, emailFromBuffer(buf, bodySection))
	}

	if err := fetchCmd.Close(); err != nil {
		return emails, fmt.Errorf("fetch unseen: %w", err)
	}
	return emails, nil
}

// MarkSeen adds the \Seen flag so the message is not imported again.
func (s *imapSession) MarkSeen(_ context.Context, uid imap.UID) error {
	storeCmd := s.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("store seen flag for uid %d: %w", uid, err)
	}
	return nil
}

func (s *imapSession) Close() error {
	return s.client.Logout().Wait()
}

func emailFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) Email {
	email := Email{
		UID:        buf.UID,
		SenderName: UnknownSenderName,
		SenderAddr: UnknownSenderAddr,
		Body:       EmptyBodyText,
		Date:       time.Now().UTC(),
	}

	if buf.Envelope != nil {
		if !buf.Envelope.Date.IsZero() {
			email.Date = buf.Envelope.Date
		}
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				email.SenderName = from.Name
			}
			if addr := from.Addr(); addr != "" {
				email.SenderAddr = addr
			}
		}
	}

	if raw := buf.FindBodySection(section); raw != nil {
		if body := extractTextBody(raw); body != "" {
			email.Body = body
		}
	}
	return email
}

// extractTextBody walks the MIME parts and returns the text/plain body,
// falling back to text/html, then empty.
func extractTextBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	defer mr.Close()

	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			if text := strings.TrimSpace(string(body)); text != "" {
				return text
			}
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = strings.TrimSpace(string(body))
		}
	}
	return htmlBody
}
