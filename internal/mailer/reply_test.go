package mailer

import (
	"strings"
	"testing"
)

func TestComposeReply(t *testing.T) {
	msg, err := ComposeReply("jo@x.com", "support@theexchange-tod.com", ReplyData{
		RecipientName:   "Jo",
		OriginalMessage: "Do you ship to Norway?",
		Answer:          "Yes, we ship worldwide.",
	})
	if err != nil {
		t.Fatalf("ComposeReply returned error: %v", err)
	}
	if msg.To != "jo@x.com" || msg.From != "support@theexchange-tod.com" {
		t.Errorf("unexpected addressing: to=%s from=%s", msg.To, msg.From)
	}
	if msg.Subject != ReplySubject {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.Tag != ReplyTag {
		t.Errorf("unexpected tag %q", msg.Tag)
	}
	for _, want := range []string{"Dear Jo,", "Do you ship to Norway?", "Yes, we ship worldwide.", "The Exchange Tod Support Team"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestComposeReplyEscapesUserText(t *testing.T) {
	msg, err := ComposeReply("jo@x.com", "support@theexchange-tod.com", ReplyData{
		RecipientName:   `Jo <img src=x>`,
		OriginalMessage: `<script>alert("xss")</script>`,
		Answer:          `a < b && b > c`,
	})
	if err != nil {
		t.Fatalf("ComposeReply returned error: %v", err)
	}
	for _, raw := range []string{"<script>", "<img", "a < b"} {
		if strings.Contains(msg.HTML, raw) {
			t.Errorf("body contains unescaped user text %q", raw)
		}
	}
	if !strings.Contains(msg.HTML, "&lt;script&gt;") {
		t.Error("expected escaped script tag in body")
	}
}

func TestComposeReplyNameFallback(t *testing.T) {
	msg, err := ComposeReply("jo@x.com", "support@theexchange-tod.com", ReplyData{
		RecipientName:   "   ",
		OriginalMessage: "Hello",
		Answer:          "Hi",
	})
	if err != nil {
		t.Fatalf("ComposeReply returned error: %v", err)
	}
	if !strings.Contains(msg.HTML, "Dear Customer,") {
		t.Error("expected Customer fallback greeting")
	}
}
