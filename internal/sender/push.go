package sender

import (
	"context"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

type pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) (string, error)
}

// Push delivers notifications to a device token through FCM.
type Push struct {
	client pusher
}

func NewPush(client pusher) *Push {
	return &Push{client: client}
}

func (p *Push) Supports(channel model.ChannelType) bool {
	return channel == model.ChannelPush
}

func (p *Push) Send(ctx context.Context, n model.Notification, title, content string) (model.Notification, error) {
	data := map[string]string{
		"notification_id": n.ID,
		"event_type":      n.EventType,
	}

	id, err := p.client.Push(ctx, n.Recipient, title, content, data)
	if err != nil {
		return outcome(n, nil, err)
	}

	return outcome(n, map[string]string{"provider_message_id": id}, nil)
}
