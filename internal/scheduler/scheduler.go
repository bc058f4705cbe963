// Package scheduler drives the periodic promotion and rescue sweeps.
package scheduler

import (
	"context"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/notification-dispatcher/internal/config"
	"github.com/aliskhannn/notification-dispatcher/internal/metrics"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

const (
	sourceScheduler = "scheduler"
	sourceRescue    = "rescue"
)

//go:generate mockgen -source=scheduler.go -destination=../mocks/scheduler/mock.go -package=mocks
type notificationRepository interface {
	FindAndLockScheduledNotifications(ctx context.Context, limit int) ([]model.Notification, error)
	FindPendingNotifications(ctx context.Context, limit int) ([]model.Notification, error)
}

type commandQueue interface {
	Send(ctx context.Context, cmd model.Command) error
}

type statusCache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
}

// Scheduler promotes due SCHEDULED notifications and re-enqueues PENDING
// notifications that have not moved for longer than the staleness threshold.
type Scheduler struct {
	repo     notificationRepository
	queue    commandQueue
	cache    statusCache
	strategy retry.Strategy
	cfg      config.Scheduler
	now      func() time.Time
}

// New creates a Scheduler. cache may be nil.
func New(
	repo notificationRepository,
	queue commandQueue,
	cache statusCache,
	strategy retry.Strategy,
	cfg config.Scheduler,
) *Scheduler {
	return &Scheduler{
		repo:     repo,
		queue:    queue,
		cache:    cache,
		strategy: strategy,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run starts both sweeps on independent tickers and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.loop(ctx, "promotion", s.cfg.PromotionInterval, s.PromoteDue)
		return nil
	})
	g.Go(func() error {
		s.loop(ctx, "rescue", s.cfg.RescueInterval, s.RescueStale)
		return nil
	})

	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, sweep func(context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zlog.Logger.Info().Str("sweep", name).Dur("interval", interval).Msg("scheduler sweep started")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Str("sweep", name).Msg("scheduler sweep stopped")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.SweepTimeout)
			n, err := sweep(sweepCtx)
			cancel()

			if err != nil {
				zlog.Logger.Error().Err(err).Str("sweep", name).Msg("sweep failed")
				continue
			}
			if n > 0 {
				zlog.Logger.Info().Str("sweep", name).Int("enqueued", n).Msg("sweep completed")
			}
		}
	}
}

// PromoteDue flips due SCHEDULED notifications to PENDING and enqueues a SEND
// command for each. It returns the number of commands enqueued.
func (s *Scheduler) PromoteDue(ctx context.Context) (int, error) {
	promoted, err := s.repo.FindAndLockScheduledNotifications(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, n := range promoted {
		s.cacheStatus(ctx, n.ID, n.Status)

		if err := s.queue.Send(ctx, model.NewSendCommand(n.ID, sourceScheduler)); err != nil {
			zlog.Logger.Error().Err(err).Str("id", n.ID).Msg("failed to enqueue promoted notification")
			continue
		}
		enqueued++
	}

	metrics.SweepNotifications.WithLabelValues("promotion").Add(float64(enqueued))
	return enqueued, nil
}

// RescueStale re-enqueues PENDING notifications untouched for longer than the
// staleness threshold. It returns the number of commands enqueued.
func (s *Scheduler) RescueStale(ctx context.Context) (int, error) {
	pending, err := s.repo.FindPendingNotifications(ctx, s.cfg.RescueLimit)
	if err != nil {
		return 0, err
	}

	now := s.now()
	enqueued := 0
	for _, n := range pending {
		if now.Sub(n.UpdatedAt) <= s.cfg.StaleThreshold {
			continue
		}

		if err := s.queue.Send(ctx, model.NewSendCommand(n.ID, sourceRescue)); err != nil {
			zlog.Logger.Error().Err(err).Str("id", n.ID).Msg("failed to enqueue stale notification")
			continue
		}

		zlog.Logger.Warn().
			Str("id", n.ID).
			Time("updated_at", n.UpdatedAt).
			Msg("rescued stale pending notification")
		enqueued++
	}

	metrics.SweepNotifications.WithLabelValues("rescue").Add(float64(enqueued))
	return enqueued, nil
}

func (s *Scheduler) cacheStatus(ctx context.Context, id string, status model.Status) {
	if s.cache == nil {
		return
	}

	if err := s.cache.SetWithRetry(ctx, s.strategy, id, string(status)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to cache notification status")
	}
}
