package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	mocks "github.com/aliskhannn/notification-dispatcher/internal/mocks/dispatch"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
	"github.com/aliskhannn/notification-dispatcher/internal/sender"
)

const maxRetry = 3

type stubSender struct {
	channel model.ChannelType
	calls   atomic.Int32
	send    func(n model.Notification) (model.Notification, error)
}

func (s *stubSender) Supports(channel model.ChannelType) bool { return channel == s.channel }

func (s *stubSender) Send(_ context.Context, n model.Notification, _, _ string) (model.Notification, error) {
	s.calls.Add(1)
	return s.send(n)
}

func succeeding(channel model.ChannelType) *stubSender {
	return &stubSender{channel: channel, send: func(n model.Notification) (model.Notification, error) {
		out := n.Clone()
		err := out.MarkSent(map[string]string{"provider_message_id": "m-1"})
		return out, err
	}}
}

func failing(channel model.ChannelType, reason string) *stubSender {
	return &stubSender{channel: channel, send: func(n model.Notification) (model.Notification, error) {
		out := n.Clone()
		err := out.MarkFailed(reason)
		return out, err
	}}
}

func seed(t *testing.T, repo *notification.MemoryRepository, n model.Notification) {
	t.Helper()
	_, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
}

func email(id string, status model.Status, retries int) model.Notification {
	return model.Notification{
		ID:          id,
		ChannelType: model.ChannelEmail,
		Recipient:   "user@example.com",
		Title:       "Hello",
		Content:     "World",
		Status:      status,
		RetryCount:  retries,
	}
}

func setup(t *testing.T, senders ...sender.Sender) (*Handler, *notification.MemoryRepository, *mocks.MockcommandQueue) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockcommandQueue(ctrl)
	repo := notification.NewMemoryRepository()

	h := NewHandler(repo, q, sender.NewRegistry(senders...), nil, retry.Strategy{}, maxRetry)
	return h, repo, q
}

func TestHandle_SendSuccess(t *testing.T) {
	s := succeeding(model.ChannelEmail)
	h, repo, q := setup(t, s)
	seed(t, repo, email("n-1", model.StatusPending, 0))

	q.EXPECT().ClearFailureCount("n-1")

	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))

	stored, err := repo.FindByID(context.Background(), "n-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, "m-1", stored.Metadata["provider_message_id"])
	assert.Equal(t, int32(1), s.calls.Load())
}

func TestHandle_AlreadySentIsIdempotent(t *testing.T) {
	s := succeeding(model.ChannelEmail)
	h, repo, _ := setup(t, s)
	seed(t, repo, email("n-1", model.StatusSent, 0))

	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))
	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, int64(0), stored.Version)
	assert.Zero(t, s.calls.Load())
}

func TestHandle_NotFoundIsDropped(t *testing.T) {
	s := succeeding(model.ChannelEmail)
	h, _, _ := setup(t, s)

	h.Handle(context.Background(), model.NewSendCommand("missing", "api"))
	assert.Zero(t, s.calls.Load())
}

func TestHandle_NotEligibleIsDropped(t *testing.T) {
	s := succeeding(model.ChannelEmail)
	h, repo, _ := setup(t, s)
	seed(t, repo, email("scheduled", model.StatusScheduled, 0))
	seed(t, repo, email("exhausted", model.StatusFailed, maxRetry))

	h.Handle(context.Background(), model.NewSendCommand("scheduled", "api"))
	h.Handle(context.Background(), model.Command{NotificationID: "exhausted", Type: model.CommandRetry})

	assert.Zero(t, s.calls.Load())
}

func TestHandle_CancelIsNoop(t *testing.T) {
	s := succeeding(model.ChannelEmail)
	h, repo, _ := setup(t, s)
	seed(t, repo, email("n-1", model.StatusPending, 0))

	h.Handle(context.Background(), model.Command{NotificationID: "n-1", Type: model.CommandCancel})

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Zero(t, s.calls.Load())
}

func TestHandle_NoSenderAvailable(t *testing.T) {
	h, repo, q := setup(t, succeeding(model.ChannelChat))
	seed(t, repo, email("n-1", model.StatusPending, 0))

	q.EXPECT().ClearFailureCount("n-1")

	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, model.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "no sender available")
}

func TestHandle_NoSenderConflictIsResolved(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMocknotificationRepository(ctrl)
	q := mocks.NewMockcommandQueue(ctrl)
	h := NewHandler(repo, q, sender.NewRegistry(succeeding(model.ChannelChat)), nil, retry.Strategy{}, maxRetry)

	pending := email("n-1", model.StatusPending, 0)
	other := email("n-1", model.StatusPending, 0)
	other.Version = 1

	gomock.InOrder(
		repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(pending, nil),
		repo.EXPECT().UpdateWithCAS(gomock.Any(), "n-1", int64(0), gomock.Any()).Return(false, nil),
		repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(other, nil),
	)

	// no ClearFailureCount: the write was lost, so the ledger belongs to the winner
	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))
}

func TestHandle_TransportFailureRequestsRetry(t *testing.T) {
	h, repo, q := setup(t, failing(model.ChannelEmail, "smtp timeout"))
	seed(t, repo, email("n-1", model.StatusPending, 0))

	cmd := model.NewSendCommand("n-1", "api")
	q.EXPECT().SendToDLQ(gomock.Any(), cmd, gomock.Any()).Do(func(_ context.Context, _ model.Command, cause error) {
		assert.ErrorIs(t, cause, ErrTransportFailure)
		assert.Contains(t, cause.Error(), "smtp timeout")
	})

	h.Handle(context.Background(), cmd)

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Equal(t, int64(1), stored.Version)
}

func TestHandle_RetryRearmsFailedNotification(t *testing.T) {
	s := succeeding(model.ChannelEmail)
	h, repo, q := setup(t, s)
	seed(t, repo, email("n-1", model.StatusFailed, 1))

	q.EXPECT().ClearFailureCount("n-1")

	h.Handle(context.Background(), model.Command{NotificationID: "n-1", Type: model.CommandRetry, AttemptCount: 2})

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, model.StatusSent, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	assert.Nil(t, stored.ErrorMessage)
}

func TestHandle_LastRetryFailsPermanently(t *testing.T) {
	h, repo, q := setup(t, failing(model.ChannelEmail, "mailbox unavailable"))
	seed(t, repo, email("n-1", model.StatusFailed, maxRetry-1))

	q.EXPECT().ClearFailureCount("n-1")

	h.Handle(context.Background(), model.Command{NotificationID: "n-1", Type: model.CommandRetry, AttemptCount: 3})

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, maxRetry, stored.RetryCount)
	assert.True(t, stored.IsTerminal(maxRetry))
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "max retry")
	assert.Contains(t, *stored.ErrorMessage, "mailbox unavailable")
}

func TestHandle_SenderPanicGoesToDLQ(t *testing.T) {
	panicking := &stubSender{channel: model.ChannelEmail, send: func(model.Notification) (model.Notification, error) {
		panic("nil pointer in transport")
	}}
	h, repo, q := setup(t, panicking)
	seed(t, repo, email("n-1", model.StatusPending, 0))

	cmd := model.NewSendCommand("n-1", "api")
	q.EXPECT().SendToDLQ(gomock.Any(), cmd, gomock.Any()).Do(func(_ context.Context, _ model.Command, cause error) {
		assert.ErrorIs(t, cause, ErrUnexpected)
	})

	h.Handle(context.Background(), cmd)

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestHandle_SenderErrorGoesToDLQ(t *testing.T) {
	broken := &stubSender{channel: model.ChannelEmail, send: func(n model.Notification) (model.Notification, error) {
		return n, errors.New("template engine crashed")
	}}
	h, repo, q := setup(t, broken)
	seed(t, repo, email("n-1", model.StatusPending, 0))

	q.EXPECT().SendToDLQ(gomock.Any(), gomock.Any(), gomock.Any())

	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))
}

func TestHandle_LoadErrorGoesToDLQ(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMocknotificationRepository(ctrl)
	q := mocks.NewMockcommandQueue(ctrl)
	h := NewHandler(repo, q, sender.NewRegistry(), nil, retry.Strategy{}, maxRetry)

	repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(model.Notification{}, errors.New("connection refused"))
	q.EXPECT().SendToDLQ(gomock.Any(), gomock.Any(), gomock.Any())

	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))
}

func TestHandle_ConflictWithSentWinnerClearsLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMocknotificationRepository(ctrl)
	q := mocks.NewMockcommandQueue(ctrl)
	h := NewHandler(repo, q, sender.NewRegistry(succeeding(model.ChannelEmail)), nil, retry.Strategy{}, maxRetry)

	pending := email("n-1", model.StatusPending, 0)
	pending.Version = 5
	winner := email("n-1", model.StatusSent, 0)
	winner.Version = 6

	gomock.InOrder(
		repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(pending, nil),
		repo.EXPECT().UpdateWithCAS(gomock.Any(), "n-1", int64(5), gomock.Any()).Return(false, nil),
		repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(winner, nil),
	)
	q.EXPECT().ClearFailureCount("n-1")

	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))
}

func TestHandle_ConflictWithoutSentWinnerIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMocknotificationRepository(ctrl)
	q := mocks.NewMockcommandQueue(ctrl)
	h := NewHandler(repo, q, sender.NewRegistry(failing(model.ChannelEmail, "timeout")), nil, retry.Strategy{}, maxRetry)

	pending := email("n-1", model.StatusPending, 0)
	other := email("n-1", model.StatusFailed, 0)
	other.Version = 1

	gomock.InOrder(
		repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(pending, nil),
		repo.EXPECT().UpdateWithCAS(gomock.Any(), "n-1", int64(0), gomock.Any()).Return(false, nil),
		repo.EXPECT().FindByID(gomock.Any(), "n-1").Return(other, nil),
	)

	// no SendToDLQ: the loser of a race never schedules a retry
	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))
}

func TestHandle_CachesStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockcommandQueue(ctrl)
	cache := mocks.NewMockstatusCache(ctrl)
	repo := notification.NewMemoryRepository()
	strategy := retry.Strategy{Attempts: 1}

	h := NewHandler(repo, q, sender.NewRegistry(succeeding(model.ChannelEmail)), cache, strategy, maxRetry)
	seed(t, repo, email("n-1", model.StatusPending, 0))

	q.EXPECT().ClearFailureCount("n-1")
	cache.EXPECT().SetWithRetry(gomock.Any(), strategy, "n-1", "SENT").Return(errors.New("redis down"))

	h.Handle(context.Background(), model.NewSendCommand("n-1", "api"))

	stored, _ := repo.FindByID(context.Background(), "n-1")
	assert.Equal(t, model.StatusSent, stored.Status)
}

func TestHandlePermanentFailure(t *testing.T) {
	h, repo, _ := setup(t)
	seed(t, repo, email("pending", model.StatusPending, 0))
	seed(t, repo, email("failed", model.StatusFailed, 1))
	seed(t, repo, email("terminal", model.StatusFailed, maxRetry))
	seed(t, repo, email("sent", model.StatusSent, 0))

	ctx := context.Background()
	cause := errors.New("database unavailable")

	for _, id := range []string{"pending", "failed", "terminal", "sent", "missing"} {
		h.HandlePermanentFailure(ctx, model.NewSendCommand(id, "api"), cause)
	}

	pending, _ := repo.FindByID(ctx, "pending")
	assert.Equal(t, model.StatusFailed, pending.Status)
	assert.Equal(t, maxRetry, pending.RetryCount)
	require.NotNil(t, pending.ErrorMessage)
	assert.Contains(t, *pending.ErrorMessage, "max retry")
	assert.Contains(t, *pending.ErrorMessage, "database unavailable")

	// a retryable FAILED record with no command left in flight must not stay retryable
	failed, _ := repo.FindByID(ctx, "failed")
	assert.Equal(t, model.StatusFailed, failed.Status)
	assert.Equal(t, maxRetry, failed.RetryCount)
	assert.True(t, failed.IsTerminal(maxRetry))
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "max retry limit exceeded")
	assert.Equal(t, int64(1), failed.Version)

	terminal, _ := repo.FindByID(ctx, "terminal")
	assert.Equal(t, int64(0), terminal.Version)

	sent, _ := repo.FindByID(ctx, "sent")
	assert.Equal(t, model.StatusSent, sent.Status)
	assert.Equal(t, int64(0), sent.Version)
}
