package adapter

import "context"

// OutboundEmail is a fully rendered message, template substitution done.
type OutboundEmail struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends one message per call through the transactional email
// provider. No batching, no retry beyond what the provider itself does.
type Mailer interface {
	Send(ctx context.Context, msg OutboundEmail) (messageID string, err error)
}
