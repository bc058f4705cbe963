// Package queue implements the command queue that decouples notification
// producers from the command handler and owns the retry and dead-letter policy.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/metrics"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("command queue closed")

// Publisher delivers a command to the worker pool.
type Publisher interface {
	Publish(ctx context.Context, cmd model.Command) error
}

// FailureListener is notified when a command exhausts its retry budget.
type FailureListener func(ctx context.Context, cmd model.Command, cause error)

// Options configures a Queue.
type Options struct {
	MaxRetry  int
	BaseDelay time.Duration // backoff unit, delay = BaseDelay * 2^failures
}

// Queue routes commands to a Publisher and schedules retries with exponential backoff.
type Queue struct {
	publisher Publisher
	maxRetry  int
	baseDelay time.Duration
	ledger    *ledger

	mu       sync.Mutex
	listener FailureListener
	timers   map[*time.Timer]struct{}
	closed   bool

	// afterFunc is time.AfterFunc outside of tests.
	afterFunc func(time.Duration, func()) *time.Timer
}

// New creates a Queue publishing through p.
func New(p Publisher, opts Options) *Queue {
	if opts.MaxRetry < 1 {
		opts.MaxRetry = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}

	return &Queue{
		publisher: p,
		maxRetry:  opts.MaxRetry,
		baseDelay: opts.BaseDelay,
		ledger:    newLedger(),
		timers:    make(map[*time.Timer]struct{}),
		afterFunc: time.AfterFunc,
	}
}

// OnPermanentFailure registers the listener for dead-lettered commands.
func (q *Queue) OnPermanentFailure(l FailureListener) {
	q.mu.Lock()
	q.listener = l
	q.mu.Unlock()
}

// Send hands cmd to the worker pool without waiting for it to be handled.
func (q *Queue) Send(ctx context.Context, cmd model.Command) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := q.publisher.Publish(ctx, cmd); err != nil {
		return fmt.Errorf("publish %s command for %s: %w", cmd.Type, cmd.NotificationID, err)
	}

	metrics.CommandsEnqueued.WithLabelValues(string(cmd.Type)).Inc()
	return nil
}

// SendDelayed schedules Send after delay. The delay is best effort and the
// pending command is lost if the process stops first.
func (q *Queue) SendDelayed(cmd model.Command, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		zlog.Logger.Warn().Str("id", cmd.NotificationID).Msg("queue closed, delayed command dropped")
		return
	}

	var timer *time.Timer
	timer = q.afterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()

		if err := q.Send(context.Background(), cmd); err != nil {
			zlog.Logger.Error().Err(err).Str("id", cmd.NotificationID).Msg("failed to send delayed command")
		}
	})
	q.timers[timer] = struct{}{}
}

// SendToDLQ records a failure for cmd and either schedules a backoff retry or,
// once the budget is spent, clears the ledger and notifies the failure listener.
func (q *Queue) SendToDLQ(ctx context.Context, cmd model.Command, cause error) {
	failures := q.ledger.increment(cmd.NotificationID)

	if failures <= q.maxRetry {
		delay := q.Backoff(failures)
		retry := model.Command{
			NotificationID: cmd.NotificationID,
			Type:           model.CommandRetry,
			Metadata:       retryMetadata(cmd.Metadata, cause),
			AttemptCount:   failures,
		}

		zlog.Logger.Info().
			Str("id", cmd.NotificationID).
			Int("failures", failures).
			Dur("backoff", delay).
			Err(cause).
			Msg("scheduling retry")

		metrics.RetriesScheduled.Inc()
		q.SendDelayed(retry, delay)
		return
	}

	q.ledger.clear(cmd.NotificationID)
	metrics.DeadLettered.Inc()

	zlog.Logger.Warn().
		Str("id", cmd.NotificationID).
		Int("failures", failures).
		Err(cause).
		Msg("retry budget exhausted, dead-lettering command")

	q.mu.Lock()
	listener := q.listener
	q.mu.Unlock()

	if listener != nil {
		listener(ctx, cmd, cause)
	}
}

// ClearFailureCount forgets the failures recorded for id.
func (q *Queue) ClearFailureCount(id string) {
	q.ledger.clear(id)
}

// FailureCount returns the failures recorded for id.
func (q *Queue) FailureCount(id string) int {
	return q.ledger.count(id)
}

// Backoff returns the delay applied after the given number of failures.
func (q *Queue) Backoff(failures int) time.Duration {
	return q.baseDelay * time.Duration(int64(1)<<uint(failures))
}

// Close stops pending delayed commands and rejects further sends.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for t := range q.timers {
		t.Stop()
	}
	q.timers = make(map[*time.Timer]struct{})
}

func retryMetadata(src map[string]string, cause error) map[string]string {
	meta := make(map[string]string, len(src)+2)
	for k, v := range src {
		meta[k] = v
	}
	meta["source"] = "retry"
	if cause != nil {
		meta["last_error"] = cause.Error()
	}
	return meta
}
