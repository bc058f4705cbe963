package sender

import (
	"context"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

type poster interface {
	Post(ctx context.Context, url, title, text string) error
}

// Chat posts notifications to the recipient's incoming webhook URL.
type Chat struct {
	client poster
}

func NewChat(client poster) *Chat {
	return &Chat{client: client}
}

func (c *Chat) Supports(channel model.ChannelType) bool {
	return channel == model.ChannelChat
}

func (c *Chat) Send(ctx context.Context, n model.Notification, title, content string) (model.Notification, error) {
	err := c.client.Post(ctx, n.Recipient, title, content)
	return outcome(n, nil, err)
}
