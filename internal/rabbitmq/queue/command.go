package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/config"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

// CommandQueue carries dispatch commands over RabbitMQ. It is a drop-in
// replacement for the in-process channel transport.
type CommandQueue struct {
	Publisher  *rabbitmq.Publisher
	Consumer   *rabbitmq.Consumer
	routingKey string
	strategy   retry.Strategy
}

// NewCommandQueue declares the exchange and the durable command queue and binds them.
func NewCommandQueue(ch *rabbitmq.Channel, cfg *config.Config) (*CommandQueue, error) {
	exchange := rabbitmq.NewExchange(cfg.RabbitMQ.Exchange, "direct")
	if err := exchange.BindToChannel(ch); err != nil {
		return nil, fmt.Errorf("failed to bind to exchange: %w", err)
	}

	qm := rabbitmq.NewQueueManager(ch)

	q, err := qm.DeclareQueue(cfg.RabbitMQ.Queue, rabbitmq.QueueConfig{Durable: true})
	if err != nil {
		return nil, fmt.Errorf("failed to declare command queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RabbitMQ.RoutingKey, exchange.Name(), false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind the exchange to the command queue: %w", err)
	}

	pub := rabbitmq.NewPublisher(ch, exchange.Name())
	cons := rabbitmq.NewConsumer(ch, rabbitmq.NewConsumerConfig(q.Name))

	return &CommandQueue{
		Publisher:  pub,
		Consumer:   cons,
		routingKey: cfg.RabbitMQ.RoutingKey,
		strategy:   cfg.Retry,
	}, nil
}

// Publish serialises cmd as JSON and publishes it with the configured retry strategy.
func (q *CommandQueue) Publish(_ context.Context, cmd model.Command) error {
	body, err := encodeCommand(cmd)
	if err != nil {
		return err
	}

	return q.Publisher.PublishWithRetry(body, q.routingKey, "application/json", q.strategy)
}

// Consume decodes incoming deliveries and forwards them to out until ctx is done.
func (q *CommandQueue) Consume(ctx context.Context, out chan<- model.Command) error {
	msgChan := make(chan []byte)

	go forward(ctx, msgChan, out)

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Consumer.ConsumeWithRetry(msgChan, q.strategy)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func forward(ctx context.Context, in <-chan []byte, out chan<- model.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}

			cmd, err := decodeCommand(m)
			if err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to unmarshal command")
				continue
			}

			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func encodeCommand(cmd model.Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	return body, nil
}

func decodeCommand(body []byte) (model.Command, error) {
	var cmd model.Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return model.Command{}, err
	}

	if cmd.NotificationID == "" {
		return model.Command{}, fmt.Errorf("command without notification id")
	}

	return cmd, nil
}
