// Package kafka ingests business events from a Kafka topic and turns them into notifications.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/config"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	notifsvc "github.com/aliskhannn/notification-dispatcher/internal/service/notification"
)

const maxBackoff = 30 * time.Second

// Event is the JSON payload expected on the ingestion topic.
type Event struct {
	UserID      *string           `json:"user_id,omitempty"`
	ChannelType string            `json:"channel_type"`
	EventType   string            `json:"event_type"`
	Recipient   string            `json:"recipient"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type notificationCreator interface {
	CreateNotification(ctx context.Context, req notifsvc.CreateRequest) (model.Notification, error)
	CreateScheduledNotification(ctx context.Context, req notifsvc.CreateRequest, at time.Time) (model.Notification, error)
}

// Consumer reads events with at-least-once semantics: an offset is committed
// only after the notification was created or the message was found undecodable.
type Consumer struct {
	reader  messageReader
	creator notificationCreator
}

// NewReader builds the consumer group reader for cfg.
func NewReader(cfg config.Kafka) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func NewConsumer(r messageReader, c notificationCreator) *Consumer {
	return &Consumer{reader: r, creator: c}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to close kafka reader")
		}
	}()

	zlog.Logger.Info().Msg("kafka consumer started")

	backoff := time.Second
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				zlog.Logger.Info().Msg("kafka consumer stopped")
				return nil
			}

			zlog.Logger.Error().Err(err).Dur("backoff", backoff).Msg("failed to fetch kafka message")
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.handle(ctx, msg); err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to ingest event, offset not committed")
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			zlog.Logger.Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit kafka offset")
		}
	}
}

// handle returns an error only for failures worth redelivering.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		zlog.Logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping undecodable event")
		return nil
	}

	req := notifsvc.CreateRequest{
		UserID:      ev.UserID,
		ChannelType: model.ChannelType(ev.ChannelType),
		EventType:   ev.EventType,
		Recipient:   ev.Recipient,
		Metadata:    ev.Metadata,
		Source:      "kafka",
	}

	var (
		n   model.Notification
		err error
	)
	if ev.ScheduledAt != nil {
		n, err = c.creator.CreateScheduledNotification(ctx, req, *ev.ScheduledAt)
	} else {
		n, err = c.creator.CreateNotification(ctx, req)
	}

	if err != nil {
		if errors.Is(err, notifsvc.ErrInvalidRequest) || errors.Is(err, notifsvc.ErrTemplateNotFound) {
			zlog.Logger.Warn().Err(err).Str("event_type", ev.EventType).Msg("skipping invalid event")
			return nil
		}
		return fmt.Errorf("create notification: %w", err)
	}

	zlog.Logger.Debug().Str("id", n.ID).Str("event_type", ev.EventType).Msg("event ingested")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
