package messages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nckexchange/exchange/internal/botcheck"
	"github.com/nckexchange/exchange/internal/mailer"
)

type fakeStore struct {
	nextID    int64
	items     map[int64]ContactMessage
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, items: map[int64]ContactMessage{}}
}

func (f *fakeStore) Insert(_ context.Context, msg ContactMessage) (ContactMessage, error) {
	if f.insertErr != nil {
		return ContactMessage{}, f.insertErr
	}
	msg.ID = f.nextID
	f.nextID++
	f.items[msg.ID] = msg
	return msg, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (ContactMessage, error) {
	msg, ok := f.items[id]
	if !ok {
		return ContactMessage{}, ErrMessageNotFound
	}
	return msg, nil
}

func (f *fakeStore) List(_ context.Context, opts ListOptions) ([]ContactMessage, error) {
	items := make([]ContactMessage, 0, len(f.items))
	for _, msg := range f.items {
		if opts.IsAnswered != nil && msg.IsAnswered != *opts.IsAnswered {
			continue
		}
		items = append(items, msg)
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

func (f *fakeStore) Answer(_ context.Context, id int64, answer string, answeredAt time.Time, beforeCommit func(ContactMessage) error) (ContactMessage, error) {
	msg, ok := f.items[id]
	if !ok {
		return ContactMessage{}, ErrMessageNotFound
	}
	if msg.IsAnswered {
		return ContactMessage{}, ErrAlreadyAnswered
	}
	updated := msg
	updated.Answer = answer
	updated.IsAnswered = true
	updated.DateAnswered = answeredAt
	if beforeCommit != nil {
		if err := beforeCommit(updated); err != nil {
			return ContactMessage{}, err
		}
	}
	f.items[id] = updated
	return updated, nil
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) error { return f.err }

func newTestService(store Store, verifier botcheck.Verifier, sender mailer.Sender) *Service {
	return NewService(nil, store, verifier, sender, "support@theexchange-tod.com")
}

func TestSubmitValidRequest(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, &fakeSender{})

	before := time.Now().UTC()
	msg, err := svc.Submit(context.Background(), SubmitRequest{
		Name:    "Jo",
		Email:   "jo@x.com",
		Message: "Hello there, need info",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if msg.ID == 0 {
		t.Error("expected assigned id")
	}
	if msg.IsAnswered {
		t.Error("new message must start unanswered")
	}
	if msg.DateSubmitted.Before(before) || msg.DateSubmitted.After(time.Now().UTC()) {
		t.Errorf("date_submitted %v outside request window", msg.DateSubmitted)
	}
	if len(store.items) != 1 {
		t.Fatalf("expected exactly one stored message, got %d", len(store.items))
	}
}

func TestSubmitEnumeratesAllFailingFields(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil, &fakeSender{})

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Name:    "  ",
		Email:   "not-an-email",
		Message: "short",
	})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "email", "message"} {
		if _, present := verr.Fields[field]; !present {
			t.Errorf("expected failing field %q in %v", field, verr.Fields)
		}
	}
	if len(store.items) != 0 {
		t.Error("invalid submission must not persist")
	}
}

func TestSubmitBotCheckFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeVerifier{err: botcheck.ErrVerificationFailed}, &fakeSender{})

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Name:    "Jo",
		Email:   "jo@x.com",
		Message: "Hello there, need info",
	})
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, present := verr.Fields["botCheckToken"]; !present {
		t.Errorf("expected botCheckToken field, got %v", verr.Fields)
	}
	if len(store.items) != 0 {
		t.Error("rejected submission must not persist")
	}
}

func TestSubmitBotCheckTransportError(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeVerifier{err: errors.New("connection refused")}, &fakeSender{})

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Name:    "Jo",
		Email:   "jo@x.com",
		Message: "Hello there, need info",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := AsValidationError(err); ok {
		t.Fatalf("transport failure must not surface as validation error: %v", err)
	}
}

func TestSubmitInsertFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("store unavailable")
	svc := newTestService(store, nil, &fakeSender{})

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Name:    "Jo",
		Email:   "jo@x.com",
		Message: "Hello there, need info",
	})
	if err == nil {
		t.Fatal("expected transient error")
	}
}

func TestReplySendsEscapedEmailAndRecordsAnswer(t *testing.T) {
	store := newFakeStore()
	seed, _ := store.Insert(context.Background(), ContactMessage{
		Name:          "Jo <script>",
		Email:         "jo@x.com",
		Message:       "Need a quote <b>now</b>",
		DateSubmitted: time.Now().UTC(),
	})
	sender := &fakeSender{}
	svc := newTestService(store, nil, sender)

	answered, err := svc.Reply(context.Background(), seed.ID, "We can help with X")
	if err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}
	if !answered.IsAnswered || answered.Answer != "We can help with X" {
		t.Errorf("unexpected answered message: %+v", answered)
	}
	if answered.DateAnswered.IsZero() {
		t.Error("expected date_answered to be set")
	}

	stored, _ := store.GetByID(context.Background(), seed.ID)
	if stored.Answer != "We can help with X" || !stored.IsAnswered {
		t.Errorf("store not updated: %+v", stored)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one outbound email, got %d", len(sender.sent))
	}
	email := sender.sent[0]
	if email.To != "jo@x.com" {
		t.Errorf("reply sent to %s", email.To)
	}
	if email.From != "support@theexchange-tod.com" {
		t.Errorf("reply from %s", email.From)
	}
	if email.Subject != mailer.ReplySubject {
		t.Errorf("unexpected subject %q", email.Subject)
	}
	if strings.Contains(email.HTML, "<script>") || strings.Contains(email.HTML, "<b>now</b>") {
		t.Error("user-supplied text must be HTML-escaped in the reply body")
	}
	if !strings.Contains(email.HTML, "Need a quote") {
		t.Error("reply body must quote the original message")
	}
}

func TestReplyNotFoundLeavesStoreUnchanged(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	svc := newTestService(store, nil, sender)

	_, err := svc.Reply(context.Background(), 42, "We can help with X")
	if !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("no email must be sent for a missing message")
	}
}

func TestReplyTooShortAnswer(t *testing.T) {
	store := newFakeStore()
	seed, _ := store.Insert(context.Background(), ContactMessage{Name: "Jo", Email: "jo@x.com", Message: "Hello there, need info"})
	svc := newTestService(store, nil, &fakeSender{})

	_, err := svc.Reply(context.Background(), seed.ID, "too short")
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, present := verr.Fields["answer"]; !present {
		t.Errorf("expected answer field, got %v", verr.Fields)
	}
}

func TestReplySendFailureRollsBackAnswer(t *testing.T) {
	store := newFakeStore()
	seed, _ := store.Insert(context.Background(), ContactMessage{Name: "Jo", Email: "jo@x.com", Message: "Hello there, need info"})
	svc := newTestService(store, nil, &fakeSender{err: errors.New("smtp unreachable")})

	_, err := svc.Reply(context.Background(), seed.ID, "We can help with X")
	if err == nil {
		t.Fatal("expected send failure to propagate")
	}

	stored, _ := store.GetByID(context.Background(), seed.ID)
	if stored.IsAnswered || stored.Answer != "" {
		t.Errorf("answer must roll back when the send fails: %+v", stored)
	}
}

func TestReplyAnsweredIsTerminal(t *testing.T) {
	store := newFakeStore()
	seed, _ := store.Insert(context.Background(), ContactMessage{Name: "Jo", Email: "jo@x.com", Message: "Hello there, need info"})
	svc := newTestService(store, nil, &fakeSender{})

	if _, err := svc.Reply(context.Background(), seed.ID, "We can help with X"); err != nil {
		t.Fatalf("first reply failed: %v", err)
	}
	_, err := svc.Reply(context.Background(), seed.ID, "Second answer attempt")
	if !errors.Is(err, ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
}

func TestListNegativeLimitUsesDefault(t *testing.T) {
	store := newFakeStore()
	for range 3 {
		_, _ = store.Insert(context.Background(), ContactMessage{Name: "Jo", Email: "jo@x.com", Message: "Hello there, need info"})
	}
	svc := newTestService(store, nil, &fakeSender{})

	items, err := svc.List(context.Background(), ListOptions{Limit: -1})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
}
