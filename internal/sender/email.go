package sender

import (
	"context"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

type mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Email sends notifications over SMTP.
type Email struct {
	client mailer
}

func NewEmail(client mailer) *Email {
	return &Email{client: client}
}

func (e *Email) Supports(channel model.ChannelType) bool {
	return channel == model.ChannelEmail
}

func (e *Email) Send(ctx context.Context, n model.Notification, title, content string) (model.Notification, error) {
	err := e.client.Send(ctx, n.Recipient, title, content)
	return outcome(n, nil, err)
}
