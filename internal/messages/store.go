package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nckexchange/exchange/internal/db"
)

// Store is the persistence boundary for contact messages. Every write runs
// in its own transaction; Answer additionally runs beforeCommit inside the
// transaction so the answer rolls back when the callback fails.
type Store interface {
	Insert(ctx context.Context, msg ContactMessage) (ContactMessage, error)
	GetByID(ctx context.Context, id int64) (ContactMessage, error)
	List(ctx context.Context, opts ListOptions) ([]ContactMessage, error)
	Answer(ctx context.Context, id int64, answer string, answeredAt time.Time, beforeCommit func(ContactMessage) error) (ContactMessage, error)
}

// PgStore implements Store on a pgx connection pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a contact message store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const messageColumns = "id, name, email, message, date_submitted, is_answered, answer, date_answered"

func (s *PgStore) Insert(ctx context.Context, msg ContactMessage) (ContactMessage, error) {
	if s.pool == nil {
		return ContactMessage{}, errors.New("message store not configured")
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (name, email, message, date_submitted, is_answered)
		 VALUES ($1, $2, $3, $4, FALSE)
		 RETURNING `+messageColumns,
		msg.Name, msg.Email, msg.Message, msg.DateSubmitted,
	)
	inserted, err := scanMessage(row)
	if err != nil {
		return ContactMessage{}, fmt.Errorf("insert contact message: %w", err)
	}
	return inserted, nil
}

func (s *PgStore) GetByID(ctx context.Context, id int64) (ContactMessage, error) {
	if s.pool == nil {
		return ContactMessage{}, errors.New("message store not configured")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM contact_messages WHERE id = $1`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ContactMessage{}, ErrMessageNotFound
		}
		return ContactMessage{}, fmt.Errorf("get contact message: %w", err)
	}
	return msg, nil
}

// List returns messages ordered unanswered-first, then newest-submitted-first.
func (s *PgStore) List(ctx context.Context, opts ListOptions) ([]ContactMessage, error) {
	if s.pool == nil {
		return nil, errors.New("message store not configured")
	}
	query := `SELECT ` + messageColumns + ` FROM contact_messages`
	args := []any{}
	if opts.IsAnswered != nil {
		query += ` WHERE is_answered = $1`
		args = append(args, *opts.IsAnswered)
	}
	query += ` ORDER BY is_answered ASC, date_submitted DESC`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	items := make([]ContactMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		items = append(items, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return items, nil
}

// Answer records the answer fields for id inside one transaction. The row is
// locked, updated, and beforeCommit runs against the updated snapshot before
// the commit; any error on the way rolls the whole update back.
func (s *PgStore) Answer(ctx context.Context, id int64, answer string, answeredAt time.Time, beforeCommit func(ContactMessage) error) (ContactMessage, error) {
	if s.pool == nil {
		return ContactMessage{}, errors.New("message store not configured")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ContactMessage{}, fmt.Errorf("begin answer tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM contact_messages WHERE id = $1 FOR UPDATE`, id)
	current, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ContactMessage{}, ErrMessageNotFound
		}
		return ContactMessage{}, fmt.Errorf("lock contact message: %w", err)
	}
	if current.IsAnswered {
		return ContactMessage{}, ErrAlreadyAnswered
	}

	row = tx.QueryRow(ctx,
		`UPDATE contact_messages
		 SET answer = $2, is_answered = TRUE, date_answered = $3
		 WHERE id = $1
		 RETURNING `+messageColumns,
		id, answer, answeredAt,
	)
	updated, err := scanMessage(row)
	if err != nil {
		return ContactMessage{}, fmt.Errorf("update contact message: %w", err)
	}

	if beforeCommit != nil {
		if err := beforeCommit(updated); err != nil {
			return ContactMessage{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ContactMessage{}, fmt.Errorf("commit answer tx: %w", err)
	}
	return updated, nil
}

func scanMessage(row pgx.Row) (ContactMessage, error) {
	var (
		msg          ContactMessage
		answer       pgtype.Text
		dateAnswered pgtype.Timestamptz
	)
	err := row.Scan(
		&msg.ID,
		&msg.Name,
		&msg.Email,
		&msg.Message,
		&msg.DateSubmitted,
		&msg.IsAnswered,
		&answer,
		&dateAnswered,
	)
	if err != nil {
		return ContactMessage{}, err
	}
	msg.Answer = db.TextToString(answer)
	msg.DateAnswered = db.TimeFromPg(dateAnswered)
	return msg, nil
}
