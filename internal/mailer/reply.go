package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// ReplySubject is the fixed subject line for contact reply emails.
const ReplySubject = "Your inquiry to The Exchange Tod has been answered"

// ReplyTag labels reply emails for provider-side tracking.
const ReplyTag = "contact-message-reply"

// ReplyData feeds the reply email template. All fields are user-supplied
// text and are HTML-escaped by the template engine.
type ReplyData struct {
	RecipientName   string
	OriginalMessage string
	Answer          string
}

var replyTemplate = template.Must(template.New("reply").Parse(`<html>
<head>
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		blockquote { border-left: 4px solid #007bff; padding-left: 15px; margin: 15px 0; color: #555; background-color: #f9f9f9; }
		.footer { font-size: 0.8em; color: #888; margin-top: 20px; }
	</style>
</head>
<body>
	<p>Dear {{.RecipientName}},</p>
	<p>Thank you for contacting us. Your original message was:</p>
	<blockquote>
		<p><strong>Original Message:</strong></p>
		<p>{{.OriginalMessage}}</p>
	</blockquote>
	<p>Here is our response:</p>
	<p>{{.Answer}}</p>
	<p>If you have any further questions, please do not hesitate to reply to this email.</p>
	<p>Cheers,<br/>The Exchange Tod Support Team</p>
</body>
</html>`))

// ComposeReply builds the HTML reply email for the original sender.
func ComposeReply(to, from string, data ReplyData) (Message, error) {
	if strings.TrimSpace(data.RecipientName) == "" {
		data.RecipientName = "Customer"
	}

	var body bytes.Buffer
	if err := replyTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render reply template: %w", err)
	}

	return Message{
		To:      to,
		From:    from,
		Subject: ReplySubject,
		HTML:    body.String(),
		Tag:     ReplyTag,
	}, nil
}
