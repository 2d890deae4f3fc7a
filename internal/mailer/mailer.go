// Package mailer sends outbound email for the contact reply workflow.
package mailer

import "context"

// Message is a fully composed outbound email. Tag is an optional tracking
// label passed through to providers that support it.
type Message struct {
	To      string
	From    string
	Subject string
	HTML    string
	Tag     string
}

// Sender delivers a composed message. Failures must propagate as errors so
// the caller can roll back work that depended on delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
