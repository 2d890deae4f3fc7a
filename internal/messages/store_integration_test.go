package messages_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	dbfs "github.com/nckexchange/exchange/db"
	"github.com/nckexchange/exchange/internal/messages"
)

func setupStoreIntegrationTest(t *testing.T) (*messages.PgStore, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}

	schema, err := dbfs.MigrationsFS.ReadFile("migrations/0001_contact_messages.up.sql")
	if err != nil {
		pool.Close()
		t.Fatalf("read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			t.Fatalf("apply schema: %v", err)
		}
	}
	if _, err := pool.Exec(ctx, "TRUNCATE contact_messages RESTART IDENTITY"); err != nil {
		pool.Close()
		t.Fatalf("truncate: %v", err)
	}

	return messages.NewPgStore(pool), func() { pool.Close() }
}

func seedIntegrationMessage(t *testing.T, store *messages.PgStore, submitted time.Time, answered bool) messages.ContactMessage {
	t.Helper()
	ctx := context.Background()

	msg, err := store.Insert(ctx, messages.ContactMessage{
		Name:          "Jo",
		Email:         "jo@x.com",
		Message:       "Hello there, need info",
		DateSubmitted: submitted,
	})
	if err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
	if answered {
		msg, err = store.Answer(ctx, msg.ID, "We can help with X", time.Now().UTC(), nil)
		if err != nil {
			t.Fatalf("seed answer failed: %v", err)
		}
	}
	return msg
}

func TestIntegrationListOrdering(t *testing.T) {
	store, cleanup := setupStoreIntegrationTest(t)
	defer cleanup()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	answeredOld := seedIntegrationMessage(t, store, base, true)
	unansweredNew := seedIntegrationMessage(t, store, base.Add(3*time.Hour), false)
	answeredNew := seedIntegrationMessage(t, store, base.Add(2*time.Hour), true)
	unansweredOld := seedIntegrationMessage(t, store, base.Add(time.Hour), false)

	items, err := store.List(context.Background(), messages.ListOptions{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}

	wantIDs := []int64{unansweredNew.ID, unansweredOld.ID, answeredNew.ID, answeredOld.ID}
	for i, want := range wantIDs {
		if items[i].ID != want {
			t.Fatalf("position %d: expected id %d, got %d (order: %v)", i, want, items[i].ID, itemIDs(items))
		}
	}

	// Unanswered first, then newest-submitted first within each group.
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if prev.IsAnswered && !cur.IsAnswered {
			t.Errorf("answered message at %d precedes unanswered at %d", i-1, i)
		}
		if prev.IsAnswered == cur.IsAnswered && prev.DateSubmitted.Before(cur.DateSubmitted) {
			t.Errorf("position %d submitted %v before %v within the same group", i-1, prev.DateSubmitted, cur.DateSubmitted)
		}
	}
}

func TestIntegrationListFilterAndLimit(t *testing.T) {
	store, cleanup := setupStoreIntegrationTest(t)
	defer cleanup()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seedIntegrationMessage(t, store, base, true)
	seedIntegrationMessage(t, store, base.Add(time.Hour), false)
	newest := seedIntegrationMessage(t, store, base.Add(2*time.Hour), false)

	unanswered := false
	items, err := store.List(context.Background(), messages.ListOptions{IsAnswered: &unanswered})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 unanswered items, got %d", len(items))
	}
	for _, item := range items {
		if item.IsAnswered {
			t.Errorf("filter leaked answered message %d", item.ID)
		}
	}

	items, err = store.List(context.Background(), messages.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != newest.ID {
		t.Errorf("limit 1 must return the newest unanswered message, got %v", itemIDs(items))
	}
}

func itemIDs(items []messages.ContactMessage) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
