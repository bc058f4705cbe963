package queue

import (
	"context"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

// ChannelTransport is the in-process command transport backed by a buffered channel.
type ChannelTransport struct {
	ch   chan model.Command
	done chan struct{}
}

// NewChannelTransport creates a transport buffering up to size commands.
func NewChannelTransport(size int) *ChannelTransport {
	return &ChannelTransport{
		ch:   make(chan model.Command, size),
		done: make(chan struct{}),
	}
}

// Publish enqueues cmd. When the buffer is full the hand-off continues in the
// background so the caller is never blocked.
func (t *ChannelTransport) Publish(_ context.Context, cmd model.Command) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	select {
	case t.ch <- cmd:
	default:
		go func() {
			select {
			case t.ch <- cmd:
			case <-t.done:
				zlog.Logger.Warn().Str("id", cmd.NotificationID).Msg("transport closed, command dropped")
			}
		}()
	}

	return nil
}

// Consume forwards commands to out until ctx is cancelled or the transport is closed.
func (t *ChannelTransport) Consume(ctx context.Context, out chan<- model.Command) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.done:
			return nil
		case cmd := <-t.ch:
			select {
			case out <- cmd:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close releases pending background hand-offs.
func (t *ChannelTransport) Close() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
