package core

import "context"

// Message is a single outbound HTML email
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Notifier delivers a message. A returned error means the message was not sent;
// callers do not retry.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
