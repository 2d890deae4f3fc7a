package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nckexchange/exchange/internal/config"
	"github.com/nckexchange/exchange/internal/messages"
)

// Importer drains unseen mailbox emails into the contact message store.
// Runs are single-flight: a run that starts while another is in progress
// is skipped.
type Importer struct {
	cfg    config.MailboxConfig
	dialer Dialer
	store  messages.Store
	logger *slog.Logger

	mu sync.Mutex
}

// NewImporter creates a mailbox importer.
func NewImporter(log *slog.Logger, cfg config.MailboxConfig, dialer Dialer, store messages.Store) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		cfg:    cfg,
		dialer: dialer,
		store:  store,
		logger: log.With(slog.String("service", "mailbox")),
	}
}

// Run performs one import pass. Each email commits independently: a
// connection or search failure ends the run but keeps everything imported
// so far, and one bad email does not stop the rest. When the mailbox is
// not configured the run aborts cleanly with a warning.
func (i *Importer) Run(ctx context.Context) error {
	if !i.mu.TryLock() {
		i.logger.Info("import already running, skipping")
		return nil
	}
	defer i.mu.Unlock()

	if i.cfg.Host == "" || i.cfg.Username == "" {
		i.logger.Warn("mailbox not configured, skipping import")
		return nil
	}

	session, err := i.dialer.Dial(ctx, i.cfg)
	if err != nil {
		i.logger.Error("mailbox connection failed", slog.Any("error", err))
		return fmt.Errorf("dial mailbox: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			i.logger.Warn("close mailbox session", slog.Any("error", cerr))
		}
	}()

	emails, err := session.Unseen(ctx)
	if err != nil {
		i.logger.Error("unseen search failed", slog.Any("error", err))
		return fmt.Errorf("list unseen: %w", err)
	}
	if len(emails) == 0 {
		i.logger.Info("no unseen emails")
		return nil
	}

	imported := 0
	for _, email := range emails {
		if err := i.importOne(ctx, session, email); err != nil {
			i.logger.Error("import email failed",
				slog.Uint64("uid", uint64(email.UID)),
				slog.Any("error", err),
			)
			continue
		}
		imported++
	}

	i.logger.Info("import finished",
		slog.Int("unseen", len(emails)),
		slog.Int("imported", imported),
	)
	return nil
}

// importOne inserts the email as a pending contact message, then marks it
// seen. The flag is only stored after a successful insert so a crash
// between the two can re-import the email but never lose it.
func (i *Importer) importOne(ctx context.Context, session Session, email Email) error {
	submitted := email.Date
	if submitted.IsZero() {
		submitted = time.Now().UTC()
	}

	msg, err := i.store.Insert(ctx, messages.ContactMessage{
		Name:          email.SenderName,
		Email:         email.SenderAddr,
		Message:       email.Body,
		DateSubmitted: submitted,
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if err := session.MarkSeen(ctx, email.UID); err != nil {
		// The message is already saved. Leaving it unseen risks a
		// duplicate on the next run, which is preferable to losing it.
		i.logger.Warn("mark seen failed after import",
			slog.Uint64("uid", uint64(email.UID)),
			slog.Int64("message_id", msg.ID),
			slog.Any("error", err),
		)
		return nil
	}

	i.logger.Info("email imported",
		slog.Uint64("uid", uint64(email.UID)),
		slog.Int64("message_id", msg.ID),
		slog.String("sender", email.SenderAddr),
	)
	return nil
}
