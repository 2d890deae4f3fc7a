package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mailgun/mailgun-go/v5"

	"github.com/nckexchange/exchange/internal/config"
)

// MailgunSender delivers mail through the Mailgun HTTP API.
type MailgunSender struct {
	client *mailgun.Client
	domain string
	logger *slog.Logger
}

// NewMailgunSender creates a Mailgun-backed sender from config.
func NewMailgunSender(log *slog.Logger, cfg config.MailgunConfig) (*MailgunSender, error) {
	if cfg.Domain == "" || cfg.APIKey == "" {
		return nil, errors.New("mailgun domain and api_key are required")
	}
	client := mailgun.NewMailgun(cfg.APIKey)
	if cfg.EU {
		client.SetAPIBase(mailgun.APIBaseEU)
	}
	return &MailgunSender{
		client: client,
		domain: cfg.Domain,
		logger: log.With(slog.String("mailer", "mailgun")),
	}, nil
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	m := mailgun.NewMessage(s.domain, msg.From, msg.Subject, "", msg.To)
	m.SetHTML(msg.HTML)
	if msg.Tag != "" {
		if err := m.AddTag(msg.Tag); err != nil {
			return fmt.Errorf("tag message: %w", err)
		}
	}

	resp, err := s.client.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("mailgun send to %s: %w", msg.To, err)
	}
	s.logger.Info("email sent",
		slog.String("to", msg.To),
		slog.String("message_id", resp.ID),
	)
	return nil
}
