package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
)

var (
	ErrInvalidRequest   = errors.New("invalid notification request")
	ErrTemplateNotFound = errors.New("no template for event type")
	ErrNotRetryable     = errors.New("notification cannot be retried")
)

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks
type notificationRepository interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	FindByID(ctx context.Context, id string) (model.Notification, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
}

type commandQueue interface {
	Send(ctx context.Context, cmd model.Command) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// CreateRequest describes a notification to create.
type CreateRequest struct {
	UserID      *string
	ChannelType model.ChannelType
	EventType   string
	Recipient   string
	Title       string // optional, overrides the event template
	Content     string // optional, overrides the event template
	Metadata    map[string]string
	Source      string // origin recorded on the SEND command, e.g. "api" or "kafka"
}

// Service is the creation entry point and the read/retry surface for notifications.
type Service struct {
	repo     notificationRepository
	queue    commandQueue
	cache    cache
	renderer *Renderer
	strategy retry.Strategy
	maxRetry int
	now      func() time.Time
}

// NewService creates a Service. cache may be nil when redis is disabled.
func NewService(
	repo notificationRepository,
	queue commandQueue,
	cache cache,
	renderer *Renderer,
	strategy retry.Strategy,
	maxRetry int,
) *Service {
	return &Service{
		repo:     repo,
		queue:    queue,
		cache:    cache,
		renderer: renderer,
		strategy: strategy,
		maxRetry: maxRetry,
		now:      time.Now,
	}
}

// CreateNotification persists a PENDING notification and, once the write has
// committed, enqueues a SEND command for it.
func (s *Service) CreateNotification(ctx context.Context, req CreateRequest) (model.Notification, error) {
	n, err := s.build(req, model.StatusPending, nil)
	if err != nil {
		return model.Notification{}, err
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	s.cacheStatus(ctx, created.ID, created.Status)
	s.afterCommit(ctx, created, req.Source)

	return created, nil
}

// CreateScheduledNotification persists a SCHEDULED notification. The scheduler
// promotes it once at has passed.
func (s *Service) CreateScheduledNotification(ctx context.Context, req CreateRequest, at time.Time) (model.Notification, error) {
	if at.IsZero() {
		return model.Notification{}, fmt.Errorf("%w: scheduled time is required", ErrInvalidRequest)
	}

	at = at.UTC()
	n, err := s.build(req, model.StatusScheduled, &at)
	if err != nil {
		return model.Notification{}, err
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return model.Notification{}, fmt.Errorf("create scheduled notification: %w", err)
	}

	s.cacheStatus(ctx, created.ID, created.Status)
	zlog.Logger.Info().
		Str("id", created.ID).
		Time("scheduled_at", at).
		Msg("notification scheduled")

	return created, nil
}

// afterCommit enqueues the first SEND command. A failure leaves the record
// PENDING for the rescue sweep.
func (s *Service) afterCommit(ctx context.Context, n model.Notification, source string) {
	if source == "" {
		source = "api"
	}

	if err := s.queue.Send(ctx, model.NewSendCommand(n.ID, source)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", n.ID).Msg("failed to enqueue notification, leaving it to the rescue sweep")
	}
}

func (s *Service) build(req CreateRequest, status model.Status, at *time.Time) (model.Notification, error) {
	if !req.ChannelType.Valid() {
		return model.Notification{}, fmt.Errorf("%w: unknown channel %q", ErrInvalidRequest, req.ChannelType)
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return model.Notification{}, fmt.Errorf("%w: recipient is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.EventType) == "" {
		return model.Notification{}, fmt.Errorf("%w: event type is required", ErrInvalidRequest)
	}

	title, content, err := s.renderer.Render(req.EventType, req.Title, req.Content, req.Metadata)
	if err != nil {
		return model.Notification{}, fmt.Errorf("render %s: %w", req.EventType, err)
	}

	n := model.Notification{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		ChannelType: req.ChannelType,
		EventType:   req.EventType,
		Recipient:   req.Recipient,
		Title:       title,
		Content:     content,
		Metadata:    req.Metadata,
		Status:      status,
		ScheduledAt: at,
	}

	return n.Clone(), nil
}

// GetByID returns the notification with the given id.
func (s *Service) GetByID(ctx context.Context, id string) (model.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	return n, nil
}

// GetByUserID returns a page of the user's notifications, newest first.
func (s *Service) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	list, err := s.repo.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get notifications by user: %w", err)
	}

	return list, nil
}

// GetStatus returns the status of a notification, reading through the cache.
func (s *Service) GetStatus(ctx context.Context, id string) (model.Status, error) {
	if s.cache != nil {
		status, err := s.cache.GetWithRetry(ctx, s.strategy, id)
		if err == nil {
			return model.Status(status), nil
		}
		if !errors.Is(err, redis.Nil) {
			zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to get notification status from cache")
		}
	}

	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get notification status: %w", err)
	}

	s.cacheStatus(ctx, id, n.Status)
	return n.Status, nil
}

// RetryNotification enqueues a RETRY command that goes through the same
// eligibility checks as an automatic retry. A SENT notification is returned
// unchanged and nothing is enqueued.
func (s *Service) RetryNotification(ctx context.Context, id string) (model.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("retry notification: %w", err)
	}

	if n.Status == model.StatusSent {
		return n, nil
	}

	if n.Status == model.StatusScheduled || n.IsTerminal(s.maxRetry) {
		return n, fmt.Errorf("%w: status %s, retries %d", ErrNotRetryable, n.Status, n.RetryCount)
	}

	cmd := model.Command{
		NotificationID: id,
		Type:           model.CommandRetry,
		Metadata:       map[string]string{"source": "admin"},
	}
	if err := s.queue.Send(ctx, cmd); err != nil {
		return n, fmt.Errorf("enqueue retry: %w", err)
	}

	zlog.Logger.Info().Str("id", id).Str("status", string(n.Status)).Msg("manual retry requested")
	return n, nil
}

func (s *Service) cacheStatus(ctx context.Context, id string, status model.Status) {
	if s.cache == nil {
		return
	}

	if err := s.cache.SetWithRetry(ctx, s.strategy, id, string(status)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id).Msg("failed to cache notification")
	}
}

// IsNotFound reports whether err means the notification does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, notification.ErrNotificationNotFound) || errors.Is(err, notification.ErrNoNotificationsFound)
}
