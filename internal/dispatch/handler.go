// Package dispatch turns queued commands into delivery attempts and durable
// state transitions of notification records.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/metrics"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
	"github.com/aliskhannn/notification-dispatcher/internal/sender"
)

//go:generate mockgen -source=handler.go -destination=../mocks/dispatch/mock.go -package=mocks
type notificationRepository interface {
	FindByID(ctx context.Context, id string) (model.Notification, error)
	UpdateWithCAS(ctx context.Context, id string, expectedVersion int64, n model.Notification) (bool, error)
}

type commandQueue interface {
	SendToDLQ(ctx context.Context, cmd model.Command, cause error)
	ClearFailureCount(id string)
}

type senderRegistry interface {
	Select(channel model.ChannelType) (sender.Sender, bool)
}

type statusCache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
}

// Handler is the single orchestration point between the command queue, the
// channel senders and the repository.
type Handler struct {
	repo     notificationRepository
	queue    commandQueue
	senders  senderRegistry
	cache    statusCache
	strategy retry.Strategy
	maxRetry int
}

// NewHandler creates a Handler. cache may be nil.
func NewHandler(
	repo notificationRepository,
	queue commandQueue,
	senders senderRegistry,
	cache statusCache,
	strategy retry.Strategy,
	maxRetry int,
) *Handler {
	return &Handler{
		repo:     repo,
		queue:    queue,
		senders:  senders,
		cache:    cache,
		strategy: strategy,
		maxRetry: maxRetry,
	}
}

// Handle processes one SEND or RETRY command. It never returns an error:
// droppable outcomes are logged, everything else is handed to the dead-letter path.
func (h *Handler) Handle(ctx context.Context, cmd model.Command) {
	log := zlog.Logger.With().
		Str("id", cmd.NotificationID).
		Str("type", string(cmd.Type)).
		Int("attempt", cmd.AttemptCount).
		Logger()

	if cmd.Type == model.CommandCancel {
		log.Info().Msg("cancel command is not supported yet, ignoring")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", ErrUnexpected, r)
			log.Error().Err(err).Msg("recovered from panic while handling command")
			h.queue.SendToDLQ(ctx, cmd, err)
		}
	}()

	err := h.process(ctx, cmd, log)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		log.Warn().Msg("notification not found, dropping command")
	case errors.Is(err, ErrAlreadySent):
		log.Debug().Msg("notification already sent, dropping command")
	case errors.Is(err, ErrNotEligible):
		log.Info().Err(err).Msg("notification not eligible, dropping command")
	default:
		log.Error().Err(err).Msg("failed to handle command")
		h.queue.SendToDLQ(ctx, cmd, err)
	}
}

func (h *Handler) process(ctx context.Context, cmd model.Command, log zerolog.Logger) error {
	id := cmd.NotificationID

	n, err := h.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: load notification: %v", ErrUnexpected, err)
	}

	if n.Status == model.StatusSent {
		return ErrAlreadySent
	}

	expected := n.Version
	work := n.Clone()

	switch {
	case work.Status == model.StatusPending:
	case work.IsRetryable(h.maxRetry):
		if err := work.MarkPending(h.maxRetry); err != nil {
			return fmt.Errorf("%w: %v", ErrNotEligible, err)
		}
	default:
		return fmt.Errorf("%w: status %s, retries %d", ErrNotEligible, work.Status, work.RetryCount)
	}

	s, ok := h.senders.Select(work.ChannelType)
	if !ok {
		reason := fmt.Sprintf("%s for channel %s", ErrNoSenderAvailable, work.ChannelType)
		if err := work.MarkFailed(reason); err != nil {
			return fmt.Errorf("%w: %v", ErrUnexpected, err)
		}

		applied, err := h.repo.UpdateWithCAS(ctx, id, expected, work)
		if err != nil {
			return fmt.Errorf("%w: persist: %v", ErrUnexpected, err)
		}
		if !applied {
			h.resolveConflict(ctx, id, log)
			return nil
		}

		h.cacheStatus(ctx, id, work.Status)
		h.queue.ClearFailureCount(id)
		log.Error().Str("channel", string(work.ChannelType)).Msg("no sender available, notification failed permanently")
		return nil
	}

	start := time.Now()
	result, err := s.Send(ctx, work, work.Title, work.Content)
	metrics.DeliveryDuration.WithLabelValues(string(work.ChannelType)).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: sender: %v", ErrUnexpected, err)
	}
	if result.Status != model.StatusSent && result.Status != model.StatusFailed {
		return fmt.Errorf("%w: sender returned status %s", ErrUnexpected, result.Status)
	}
	metrics.DeliveryAttempts.WithLabelValues(string(work.ChannelType), string(result.Status)).Inc()

	exhausted := result.Status == model.StatusFailed && !result.IsRetryable(h.maxRetry)
	if exhausted {
		msg := fmt.Sprintf("max retry limit exceeded (%d): %s", h.maxRetry, errorMessage(result))
		result.ErrorMessage = &msg
	}

	applied, err := h.repo.UpdateWithCAS(ctx, id, expected, result)
	if err != nil {
		return fmt.Errorf("%w: persist: %v", ErrUnexpected, err)
	}
	if !applied {
		h.resolveConflict(ctx, id, log)
		return nil
	}

	h.cacheStatus(ctx, id, result.Status)

	switch {
	case result.Status == model.StatusSent:
		h.queue.ClearFailureCount(id)
		log.Info().Msg("notification sent")
	case exhausted:
		h.queue.ClearFailureCount(id)
		log.Warn().Str("error", errorMessage(result)).Msg("notification failed permanently")
	default:
		log.Warn().Str("error", errorMessage(result)).Int("retry_count", result.RetryCount).Msg("delivery failed, requesting retry")
		h.queue.SendToDLQ(ctx, cmd, fmt.Errorf("%w: %s", ErrTransportFailure, errorMessage(result)))
	}

	return nil
}

// resolveConflict runs after a lost CAS race. The command is dropped either way
// so that concurrent workers do not multiply retries.
func (h *Handler) resolveConflict(ctx context.Context, id string, log zerolog.Logger) {
	metrics.CASConflicts.Inc()

	current, err := h.repo.FindByID(ctx, id)
	if err != nil {
		log.Warn().Err(err).Msg("version conflict, failed to re-read notification")
		return
	}

	if current.Status == model.StatusSent {
		h.queue.ClearFailureCount(id)
		log.Info().Msg("version conflict, notification already sent by another worker")
		return
	}

	log.Info().
		Str("status", string(current.Status)).
		Int64("version", current.Version).
		Err(ErrConcurrencyConflict).
		Msg("version conflict, dropping command")
}

// HandlePermanentFailure is the listener for commands that exhausted their
// retry budget in the queue. It makes the notification terminally FAILED unless
// it is already SENT or terminal, so no record is left retryable without a
// pending command.
func (h *Handler) HandlePermanentFailure(ctx context.Context, cmd model.Command, cause error) {
	log := zlog.Logger.With().Str("id", cmd.NotificationID).Logger()

	n, err := h.repo.FindByID(ctx, cmd.NotificationID)
	if err != nil {
		log.Error().Err(err).Msg("permanent failure: failed to load notification")
		return
	}

	if n.Status == model.StatusSent || n.IsTerminal(h.maxRetry) {
		log.Info().Str("status", string(n.Status)).Msg("permanent failure: notification already final")
		return
	}

	work := n.Clone()
	reason := fmt.Sprintf("max retry limit exceeded (%d)", h.maxRetry)
	if cause != nil {
		reason += ": " + cause.Error()
	}

	if work.Status == model.StatusFailed {
		work.ErrorMessage = &reason
	} else if err := work.MarkFailed(reason); err != nil {
		log.Error().Err(err).Msg("permanent failure: cannot mark notification failed")
		return
	}
	if work.RetryCount < h.maxRetry {
		work.RetryCount = h.maxRetry
	}

	applied, err := h.repo.UpdateWithCAS(ctx, n.ID, n.Version, work)
	if err != nil {
		log.Error().Err(err).Msg("permanent failure: failed to persist notification")
		return
	}
	if !applied {
		metrics.CASConflicts.Inc()
		log.Info().Msg("permanent failure: version conflict, dropping")
		return
	}

	h.cacheStatus(ctx, n.ID, work.Status)
	log.Warn().Str("reason", reason).Msg("notification failed permanently")
}

func (h *Handler) cacheStatus(ctx context.Context, id string, status model.Status) {
	if h.cache == nil {
		return
	}

	if err := h.cache.SetWithRetry(ctx, h.strategy, id, string(status)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to cache notification status")
	}
}

func errorMessage(n model.Notification) string {
	if n.ErrorMessage == nil {
		return "unknown error"
	}
	return *n.ErrorMessage
}
