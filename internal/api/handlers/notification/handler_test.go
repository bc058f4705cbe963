package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/notification-dispatcher/internal/api/dto"
	mocks "github.com/aliskhannn/notification-dispatcher/internal/mocks/api/handlers/notification"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/repository/notification"
	notifsvc "github.com/aliskhannn/notification-dispatcher/internal/service/notification"
)

func setupHandler(t *testing.T) (*Handler, *mocks.MocknotificationService) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMocknotificationService(ctrl)
	handler := NewHandler(mockService, validator.New())
	return handler, mockService
}

func newContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, &buf)
	return c, w
}

func TestHandler_Create_Success(t *testing.T) {
	handler, mockService := setupHandler(t)

	reqBody := dto.CreateRequest{
		Channel:   "EMAIL",
		EventType: "order_shipped",
		Recipient: "user@example.com",
		Metadata:  map[string]string{"order_id": "42"},
	}
	c, w := newContext(http.MethodPost, "/api/notifications", reqBody)

	mockService.EXPECT().
		CreateNotification(gomock.Any(), notifsvc.CreateRequest{
			ChannelType: model.ChannelEmail,
			EventType:   "order_shipped",
			Recipient:   "user@example.com",
			Metadata:    map[string]string{"order_id": "42"},
			Source:      "api",
		}).
		Return(model.Notification{ID: "n-1", Status: model.StatusPending}, nil)

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"id":"n-1"`)
}

func TestHandler_Create_Scheduled(t *testing.T) {
	handler, mockService := setupHandler(t)

	reqBody := dto.CreateRequest{
		Channel:   "PUSH",
		EventType: "order_shipped",
		Recipient: "device-token",
		SendAt:    "2030-01-01T09:00:00Z",
	}
	c, w := newContext(http.MethodPost, "/api/notifications", reqBody)

	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	mockService.EXPECT().
		CreateScheduledNotification(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req notifsvc.CreateRequest, got time.Time) (model.Notification, error) {
			assert.Equal(t, model.ChannelPush, req.ChannelType)
			assert.True(t, at.Equal(got))
			return model.Notification{ID: "n-1", Status: model.StatusScheduled}, nil
		})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)
}

func TestHandler_Create_ValidationError(t *testing.T) {
	handler, _ := setupHandler(t)

	c, w := newContext(http.MethodPost, "/api/notifications", dto.CreateRequest{
		Channel:   "SMS",
		EventType: "order_shipped",
		Recipient: "x",
	})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_InvalidSendAt(t *testing.T) {
	handler, _ := setupHandler(t)

	c, w := newContext(http.MethodPost, "/api/notifications", dto.CreateRequest{
		Channel:   "EMAIL",
		EventType: "order_shipped",
		Recipient: "user@example.com",
		SendAt:    "tomorrow",
	})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Create_UnknownTemplate(t *testing.T) {
	handler, mockService := setupHandler(t)

	c, w := newContext(http.MethodPost, "/api/notifications", dto.CreateRequest{
		Channel:   "EMAIL",
		EventType: "mystery",
		Recipient: "user@example.com",
	})

	mockService.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).
		Return(model.Notification{}, notifsvc.ErrTemplateNotFound)

	handler.Create(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Result().StatusCode)
}

func TestHandler_Get_NotFound(t *testing.T) {
	handler, mockService := setupHandler(t)

	c, w := newContext(http.MethodGet, "/api/notifications/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	mockService.EXPECT().GetByID(gomock.Any(), "missing").
		Return(model.Notification{}, notification.ErrNotificationNotFound)

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_GetStatus_Success(t *testing.T) {
	handler, mockService := setupHandler(t)

	c, w := newContext(http.MethodGet, "/api/notifications/n-1/status", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}

	mockService.EXPECT().GetStatus(gomock.Any(), "n-1").Return(model.StatusSent, nil)

	handler.GetStatus(c)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.JSONEq(t, `{"result":{"id":"n-1","status":"SENT"}}`, w.Body.String())
}

func TestHandler_GetStatus_InternalError(t *testing.T) {
	handler, mockService := setupHandler(t)

	c, w := newContext(http.MethodGet, "/api/notifications/n-1/status", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}

	mockService.EXPECT().GetStatus(gomock.Any(), "n-1").Return(model.Status(""), errors.New("db error"))

	handler.GetStatus(c)

	assert.Equal(t, http.StatusInternalServerError, w.Result().StatusCode)
}

func TestHandler_ListByUser(t *testing.T) {
	handler, mockService := setupHandler(t)

	c, w := newContext(http.MethodGet, "/api/users/u-1/notifications?limit=5&offset=10", nil)
	c.Params = gin.Params{{Key: "user_id", Value: "u-1"}}

	mockService.EXPECT().GetByUserID(gomock.Any(), "u-1", 5, 10).
		Return([]model.Notification{{ID: "n-1"}}, nil)

	handler.ListByUser(c)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestHandler_ListByUser_InvalidLimit(t *testing.T) {
	handler, _ := setupHandler(t)

	c, w := newContext(http.MethodGet, "/api/users/u-1/notifications?limit=500", nil)
	c.Params = gin.Params{{Key: "user_id", Value: "u-1"}}

	handler.ListByUser(c)

	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestHandler_Retry(t *testing.T) {
	tests := []struct {
		name   string
		result model.Notification
		err    error
		want   int
	}{
		{"failed notification is re-enqueued", model.Notification{ID: "n-1", Status: model.StatusFailed}, nil, http.StatusAccepted},
		{"sent notification is returned unchanged", model.Notification{ID: "n-1", Status: model.StatusSent}, nil, http.StatusOK},
		{"terminal notification", model.Notification{}, notifsvc.ErrNotRetryable, http.StatusConflict},
		{"missing notification", model.Notification{}, notification.ErrNotificationNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockService := setupHandler(t)

			c, w := newContext(http.MethodPost, "/api/notifications/n-1/retry", nil)
			c.Params = gin.Params{{Key: "id", Value: "n-1"}}

			mockService.EXPECT().RetryNotification(gomock.Any(), "n-1").Return(tt.result, tt.err)

			handler.Retry(c)

			assert.Equal(t, tt.want, w.Result().StatusCode)
		})
	}
}
