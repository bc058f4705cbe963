package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/notification-dispatcher/internal/config"
	mocks "github.com/aliskhannn/notification-dispatcher/internal/mocks/service/notification"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
)

var templates = map[string]config.Template{
	"order_shipped": {
		Title:   "Your order {{order_id}} has shipped",
		Content: "Hi {{name}}, order {{order_id}} is on its way.",
	},
}

type fixture struct {
	svc   *Service
	repo  *mocks.MocknotificationRepository
	queue *mocks.MockcommandQueue
	cache *mocks.Mockcache
}

func setup(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		repo:  mocks.NewMocknotificationRepository(ctrl),
		queue: mocks.NewMockcommandQueue(ctrl),
		cache: mocks.NewMockcache(ctrl),
	}
	f.svc = NewService(f.repo, f.queue, f.cache, NewRenderer(templates), retry.Strategy{}, 3)
	return f
}

func echoCreate(_ context.Context, n model.Notification) (model.Notification, error) {
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	return n, nil
}

func TestService_CreateNotification(t *testing.T) {
	f := setup(t)

	req := CreateRequest{
		ChannelType: model.ChannelEmail,
		EventType:   "ORDER_SHIPPED",
		Recipient:   "user@example.com",
		Metadata:    map[string]string{"order_id": "42", "name": "Ann"},
	}

	var created model.Notification
	gomock.InOrder(
		f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, n model.Notification) (model.Notification, error) {
				created = n
				return echoCreate(ctx, n)
			}),
		f.cache.EXPECT().SetWithRetry(gomock.Any(), retry.Strategy{}, gomock.Any(), "PENDING").Return(nil),
		f.queue.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, cmd model.Command) error {
				assert.Equal(t, created.ID, cmd.NotificationID)
				assert.Equal(t, model.CommandSend, cmd.Type)
				assert.Equal(t, "api", cmd.Metadata["source"])
				return nil
			}),
	)

	n, err := f.svc.CreateNotification(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, model.StatusPending, n.Status)
	assert.Equal(t, "Your order 42 has shipped", n.Title)
	assert.Equal(t, "Hi Ann, order 42 is on its way.", n.Content)
	assert.Nil(t, n.ScheduledAt)
}

func TestService_CreateNotification_EnqueueFailureStillReturnsRecord(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate)
	f.cache.EXPECT().SetWithRetry(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	f.queue.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("queue closed"))

	n, err := f.svc.CreateNotification(context.Background(), CreateRequest{
		ChannelType: model.ChannelChat,
		EventType:   "deploy_finished",
		Recipient:   "https://chat.example.com/hook",
		Title:       "Deploy",
		Content:     "Build {{build}} is live",
		Metadata:    map[string]string{"build": "1.2.3"},
		Source:      "kafka",
	})
	require.NoError(t, err)
	assert.Equal(t, "Build 1.2.3 is live", n.Content)
}

func TestService_CreateNotification_Invalid(t *testing.T) {
	f := setup(t)

	cases := map[string]CreateRequest{
		"unknown channel": {ChannelType: "SMS", EventType: "order_shipped", Recipient: "x"},
		"no recipient":    {ChannelType: model.ChannelEmail, EventType: "order_shipped"},
		"no event type":   {ChannelType: model.ChannelEmail, Recipient: "x"},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateNotification(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	_, err := f.svc.CreateNotification(context.Background(), CreateRequest{
		ChannelType: model.ChannelEmail,
		EventType:   "unknown_event",
		Recipient:   "user@example.com",
	})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestService_CreateNotification_RepositoryError(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(model.Notification{}, errors.New("db error"))

	_, err := f.svc.CreateNotification(context.Background(), CreateRequest{
		ChannelType: model.ChannelEmail,
		EventType:   "order_shipped",
		Recipient:   "user@example.com",
	})
	assert.Error(t, err)
}

func TestService_CreateScheduledNotification(t *testing.T) {
	f := setup(t)

	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate)
	f.cache.EXPECT().SetWithRetry(gomock.Any(), gomock.Any(), gomock.Any(), "SCHEDULED").Return(nil)

	n, err := f.svc.CreateScheduledNotification(context.Background(), CreateRequest{
		ChannelType: model.ChannelPush,
		EventType:   "order_shipped",
		Recipient:   "device-token",
		Metadata:    map[string]string{"order_id": "7", "name": "Bo"},
	}, at)
	require.NoError(t, err)

	assert.Equal(t, model.StatusScheduled, n.Status)
	require.NotNil(t, n.ScheduledAt)
	assert.True(t, at.Equal(*n.ScheduledAt))
}

func TestService_GetStatus_CacheHit(t *testing.T) {
	f := setup(t)

	f.cache.EXPECT().GetWithRetry(gomock.Any(), retry.Strategy{}, "n-1").Return("SENT", nil)

	status, err := f.svc.GetStatus(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, status)
}

func TestService_GetStatus_CacheMiss(t *testing.T) {
	f := setup(t)

	f.cache.EXPECT().GetWithRetry(gomock.Any(), retry.Strategy{}, "n-1").Return("", redis.Nil)
	f.repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(model.Notification{ID: "n-1", Status: model.StatusFailed}, nil)
	f.cache.EXPECT().SetWithRetry(gomock.Any(), retry.Strategy{}, "n-1", "FAILED").Return(nil)

	status, err := f.svc.GetStatus(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, status)
}

func TestService_GetStatus_NotFound(t *testing.T) {
	f := setup(t)

	f.cache.EXPECT().GetWithRetry(gomock.Any(), gomock.Any(), "missing").Return("", redis.Nil)
	f.repo.EXPECT().FindByID(gomock.Any(), "missing").Return(model.Notification{}, notification.ErrNotificationNotFound)

	_, err := f.svc.GetStatus(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestService_GetStatus_WithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMocknotificationRepository(ctrl)
	svc := NewService(repo, nil, nil, NewRenderer(nil), retry.Strategy{}, 3)

	repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(model.Notification{ID: "n-1", Status: model.StatusPending}, nil)

	status, err := svc.GetStatus(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, status)
}

func TestService_GetByUserID(t *testing.T) {
	f := setup(t)

	list := []model.Notification{{ID: "n-2"}, {ID: "n-1"}}
	f.repo.EXPECT().FindByUserID(gomock.Any(), "u-1", 20, 0).Return(list, nil)

	got, err := f.svc.GetByUserID(context.Background(), "u-1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestService_RetryNotification_SentIsNoop(t *testing.T) {
	f := setup(t)

	sent := model.Notification{ID: "n-1", Status: model.StatusSent, Version: 4}
	f.repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(sent, nil)

	n, err := f.svc.RetryNotification(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, sent, n)
}

func TestService_RetryNotification_EnqueuesRetry(t *testing.T) {
	f := setup(t)

	failed := model.Notification{ID: "n-1", Status: model.StatusFailed, RetryCount: 1}
	f.repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(failed, nil)
	f.queue.EXPECT().Send(gomock.Any(), model.Command{
		NotificationID: "n-1",
		Type:           model.CommandRetry,
		Metadata:       map[string]string{"source": "admin"},
	}).Return(nil)

	n, err := f.svc.RetryNotification(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, failed, n)
}

func TestService_RetryNotification_Terminal(t *testing.T) {
	f := setup(t)

	f.repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(model.Notification{ID: "n-1", Status: model.StatusFailed, RetryCount: 3}, nil)

	_, err := f.svc.RetryNotification(context.Background(), "n-1")
	assert.ErrorIs(t, err, ErrNotRetryable)
}
