// Package messages implements the contact message workflows: public intake,
// admin review listing, and the transactional reply.
package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/nckexchange/exchange/internal/botcheck"
	"github.com/nckexchange/exchange/internal/mailer"
)

type Service struct {
	store    Store
	verifier botcheck.Verifier
	sender   mailer.Sender
	from     string
	logger   *slog.Logger
}

// NewService creates the contact message service. from is the fixed sender
// address used for reply emails.
func NewService(log *slog.Logger, store Store, verifier botcheck.Verifier, sender mailer.Sender, from string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		verifier: verifier,
		sender:   sender,
		from:     from,
		logger:   log.With(slog.String("service", "messages")),
	}
}

// Submit validates a contact form submission and persists it as a pending
// message. Validation failures enumerate every failing field and persist
// nothing.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (ContactMessage, error) {
	if s.store == nil {
		return ContactMessage{}, errors.New("message store not configured")
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, req.BotCheckToken); err != nil {
			if errors.Is(err, botcheck.ErrVerificationFailed) {
				return ContactMessage{}, &ValidationError{Fields: map[string]string{
					"botCheckToken": "Bot check verification failed. Please try again.",
				}}
			}
			return ContactMessage{}, fmt.Errorf("bot check: %w", err)
		}
	}

	if verr := validateSubmission(req); verr != nil {
		return ContactMessage{}, verr
	}

	msg, err := s.store.Insert(ctx, ContactMessage{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		Message:       req.Message,
		DateSubmitted: time.Now().UTC(),
	})
	if err != nil {
		return ContactMessage{}, err
	}

	s.logger.Info("contact message saved",
		slog.Int64("id", msg.ID),
		slog.String("email", msg.Email),
	)
	return msg, nil
}

// Get fetches one message by id; ErrMessageNotFound when absent.
func (s *Service) Get(ctx context.Context, id int64) (ContactMessage, error) {
	if s.store == nil {
		return ContactMessage{}, errors.New("message store not configured")
	}
	return s.store.GetByID(ctx, id)
}

// List returns messages for the review screen, unanswered first, then
// newest-submitted first. A negative limit falls back to DefaultListLimit;
// zero means unlimited.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]ContactMessage, error) {
	if s.store == nil {
		return nil, errors.New("message store not configured")
	}
	if opts.Limit < 0 {
		opts.Limit = DefaultListLimit
	}
	return s.store.List(ctx, opts)
}

// Reply records the answer for id and emails it to the original sender. The
// answer update and the send share one transactional scope: a failed send
// rolls the update back, so a message is never marked answered without its
// reply email having been accepted by the sender.
func (s *Service) Reply(ctx context.Context, id int64, answer string) (ContactMessage, error) {
	if s.store == nil {
		return ContactMessage{}, errors.New("message store not configured")
	}
	if s.sender == nil {
		return ContactMessage{}, errors.New("email sender not configured")
	}
	if len(strings.TrimSpace(answer)) < MinMessageLength {
		return ContactMessage{}, &ValidationError{Fields: map[string]string{
			"answer": fmt.Sprintf("Your answer must be at least %d characters long.", MinMessageLength),
		}}
	}

	answered, err := s.store.Answer(ctx, id, answer, time.Now().UTC(), func(updated ContactMessage) error {
		email, err := mailer.ComposeReply(updated.Email, s.from, mailer.ReplyData{
			RecipientName:   updated.Name,
			OriginalMessage: updated.Message,
			Answer:          updated.Answer,
		})
		if err != nil {
			return err
		}
		if err := s.sender.Send(ctx, email); err != nil {
			return fmt.Errorf("send reply email: %w", err)
		}
		return nil
	})
	if err != nil {
		return ContactMessage{}, err
	}

	s.logger.Info("reply sent",
		slog.Int64("id", answered.ID),
		slog.String("recipient", answered.Email),
	)
	return answered, nil
}

func validateSubmission(req SubmitRequest) *ValidationError {
	fields := map[string]string{}

	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "Please enter your name."
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		fields["email"] = "Please enter your email address."
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "Please enter a valid email address."
	}

	if len(strings.TrimSpace(req.Message)) < MinMessageLength {
		fields["message"] = fmt.Sprintf("Your message must be at least %d characters long.", MinMessageLength)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
