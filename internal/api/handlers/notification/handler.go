package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/api/dto"
	"github.com/aliskhannn/notification-dispatcher/internal/api/respond"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	notifsvc "github.com/aliskhannn/notification-dispatcher/internal/service/notification"
)

const defaultPageSize = 20

// notificationService is the part of the notification service the HTTP layer uses.
//
//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/notification/mock.go -package=mocks
type notificationService interface {
	CreateNotification(ctx context.Context, req notifsvc.CreateRequest) (model.Notification, error)
	CreateScheduledNotification(ctx context.Context, req notifsvc.CreateRequest, at time.Time) (model.Notification, error)
	GetByID(ctx context.Context, id string) (model.Notification, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	GetStatus(ctx context.Context, id string) (model.Status, error)
	RetryNotification(ctx context.Context, id string) (model.Notification, error)
}

// Handler serves the administrative notification endpoints.
type Handler struct {
	service   notificationService
	validator *validator.Validate
}

func NewHandler(s notificationService, v *validator.Validate) *Handler {
	return &Handler{service: s, validator: v}
}

// Create handles POST /api/notifications.
func (h *Handler) Create(c *ginext.Context) {
	var req dto.CreateRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	sendAt, err := req.ParseSendAt()
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("send_at", req.SendAt).Msg("failed to parse send_at")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid send_at format, expected RFC 3339"))
		return
	}

	in := notifsvc.CreateRequest{
		UserID:      req.UserID,
		ChannelType: model.ChannelType(req.Channel),
		EventType:   req.EventType,
		Recipient:   req.Recipient,
		Title:       req.Title,
		Content:     req.Content,
		Metadata:    req.Metadata,
		Source:      "api",
	}

	var n model.Notification
	if sendAt != nil {
		n, err = h.service.CreateScheduledNotification(c.Request.Context(), in, *sendAt)
	} else {
		n, err = h.service.CreateNotification(c.Request.Context(), in)
	}
	if err != nil {
		if errors.Is(err, notifsvc.ErrInvalidRequest) || errors.Is(err, notifsvc.ErrTemplateNotFound) {
			zlog.Logger.Warn().Err(err).Msg("rejected notification request")
			respond.Fail(c.Writer, http.StatusUnprocessableEntity, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("event_type", req.EventType).Msg("failed to create notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, n)
}

// Get handles GET /api/notifications/:id.
func (h *Handler) Get(c *ginext.Context) {
	id := c.Param("id")

	n, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err, "failed to get notification")
		return
	}

	respond.OK(c.Writer, n)
}

// GetStatus handles GET /api/notifications/:id/status.
func (h *Handler) GetStatus(c *ginext.Context) {
	id := c.Param("id")

	status, err := h.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		h.fail(c, id, err, "failed to get notification status")
		return
	}

	respond.OK(c.Writer, dto.StatusResponse{ID: id, Status: string(status)})
}

// ListByUser handles GET /api/users/:user_id/notifications.
func (h *Handler) ListByUser(c *ginext.Context) {
	userID := c.Param("user_id")

	query := dto.ListQuery{Limit: defaultPageSize}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid limit"))
			return
		}
		query.Limit = limit
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid offset"))
			return
		}
		query.Offset = offset
	}

	if err := h.validator.Struct(query); err != nil {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	list, err := h.service.GetByUserID(c.Request.Context(), userID, query.Limit, query.Offset)
	if err != nil {
		h.fail(c, userID, err, "failed to list notifications")
		return
	}

	respond.OK(c.Writer, list)
}

// Retry handles POST /api/notifications/:id/retry.
func (h *Handler) Retry(c *ginext.Context) {
	id := c.Param("id")

	n, err := h.service.RetryNotification(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, notifsvc.ErrNotRetryable) {
			zlog.Logger.Warn().Str("id", id).Err(err).Msg("notification cannot be retried")
			respond.Fail(c.Writer, http.StatusConflict, err)
			return
		}

		h.fail(c, id, err, "failed to retry notification")
		return
	}

	if n.Status == model.StatusSent {
		respond.OK(c.Writer, n)
		return
	}

	respond.Accepted(c.Writer, n)
}

func (h *Handler) fail(c *ginext.Context, id string, err error, msg string) {
	if notifsvc.IsNotFound(err) {
		zlog.Logger.Warn().Str("id", id).Err(err).Msg("notification not found")
		respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
		return
	}

	zlog.Logger.Error().Err(err).Str("id", id).Msg(msg)
	respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
}
