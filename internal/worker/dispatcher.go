package worker

import (
	"context"
	"sync"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

//go:generate mockgen -source=dispatcher.go -destination=../mocks/worker/mock.go -package=mocks
type commandConsumer interface {
	Consume(ctx context.Context, out chan<- model.Command) error
}

type commandHandler interface {
	Handle(ctx context.Context, cmd model.Command)
}

// Dispatcher runs a fixed pool of workers that pull commands from the
// transport and hand them to the command handler.
type Dispatcher struct {
	consumer commandConsumer
	handler  commandHandler
}

func NewDispatcher(c commandConsumer, h commandHandler) *Dispatcher {
	return &Dispatcher{
		consumer: c,
		handler:  h,
	}
}

// Run blocks until ctx is cancelled and every in-flight command has been handled.
func (d *Dispatcher) Run(ctx context.Context, workerCount int) {
	var wg sync.WaitGroup
	cmdChan := make(chan model.Command, workerCount*10)

	go func() {
		if err := d.consumer.Consume(ctx, cmdChan); err != nil && ctx.Err() == nil {
			zlog.Logger.Error().Err(err).Msg("failed to consume commands")
		}
	}()

	// in-flight commands finish even after shutdown starts
	handleCtx := context.WithoutCancel(ctx)

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func(id int) {
			defer wg.Done()

			zlog.Logger.Debug().Int("worker", id).Msg("worker started")

			for {
				select {
				case <-ctx.Done():
					zlog.Logger.Debug().Int("worker", id).Msg("worker shutting down")
					return
				case cmd := <-cmdChan:
					d.handler.Handle(handleCtx, cmd)
				}
			}
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
	zlog.Logger.Info().Msg("dispatcher stopped")
}
