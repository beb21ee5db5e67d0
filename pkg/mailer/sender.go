package mailer

import (
	"context"
	"errors"
)

// Sender is the outbound email collaborator used by the notifier.
type Sender interface {
	Send(ctx context.Context, subject string, recipients []string, text, html string) error
}

// Publisher puts a JSON payload on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSender hands rendered mail to the email worker instead of calling
// the provider inline.
type QueueSender struct {
	Pub Publisher
}

func (q QueueSender) Send(ctx context.Context, subject string, recipients []string, text, html string) error {
	if len(recipients) == 0 {
		return errors.New("queue sender: no recipients")
	}
	return q.Pub.PublishJSON(ctx, EmailJob{
		To:      recipients,
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, subject string, recipients []string, text, html string) error

func (f SenderFunc) Send(ctx context.Context, subject string, recipients []string, text, html string) error {
	return f(ctx, subject, recipients, text, html)
}
