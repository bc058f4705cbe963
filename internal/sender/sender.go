// Package sender holds the channel transports and the registry that selects one per notification.
package sender

import (
	"context"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

// Sender delivers a notification over one channel.
//
// Send receives a PENDING notification and returns a copy that is SENT or FAILED.
// Transport failures are reported through the FAILED copy, never through the error,
// which is reserved for faults that leave the outcome unknown.
type Sender interface {
	Supports(channel model.ChannelType) bool
	Send(ctx context.Context, n model.Notification, title, content string) (model.Notification, error)
}

// Registry selects a Sender for a channel. The first registered match wins.
type Registry struct {
	senders []Sender
}

// NewRegistry creates a registry trying senders in order.
func NewRegistry(senders ...Sender) *Registry {
	return &Registry{senders: senders}
}

// Select returns the first sender supporting channel.
func (r *Registry) Select(channel model.ChannelType) (Sender, bool) {
	for _, s := range r.senders {
		if s.Supports(channel) {
			return s, true
		}
	}
	return nil, false
}

// outcome applies the transport result to a copy of n.
func outcome(n model.Notification, meta map[string]string, err error) (model.Notification, error) {
	out := n.Clone()
	if err != nil {
		if markErr := out.MarkFailed(err.Error()); markErr != nil {
			return n, markErr
		}
		return out, nil
	}

	if markErr := out.MarkSent(meta); markErr != nil {
		return n, markErr
	}
	return out, nil
}
