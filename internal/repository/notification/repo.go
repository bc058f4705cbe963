package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoNotificationsFound = errors.New("no notifications found")
)

const columns = `id, user_id, channel_type, event_type, recipient, title, content, metadata,
		       status, scheduled_at, retry_count, error_message, version, created_at, updated_at`

// Repository provides methods to interact with notifications table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new notification with version 0 and returns the stored row.
func (r *Repository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	query := `
		INSERT INTO notifications (
		    id, user_id, channel_type, event_type, recipient, title, content, metadata,
		    status, scheduled_at, retry_count, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)
		RETURNING version, created_at, updated_at;
    `

	meta, err := encodeMetadata(n.Metadata)
	if err != nil {
		return model.Notification{}, err
	}

	err = r.db.Master.QueryRowContext(
		ctx, query,
		n.ID, nullString(n.UserID), n.ChannelType, n.EventType, n.Recipient, n.Title, n.Content, meta,
		n.Status, nullTime(n), n.RetryCount,
	).Scan(&n.Version, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return model.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// FindByID retrieves a notification by its ID.
func (r *Repository) FindByID(ctx context.Context, id string) (model.Notification, error) {
	query := `
		SELECT ` + columns + `
		FROM notifications
		WHERE id = $1;
    `

	n, err := scanNotification(r.db.Master.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// FindByUserID retrieves notifications of a user, newest first.
func (r *Repository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	query := `
		SELECT ` + columns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
    `

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user notifications: %w", err)
	}

	notifications, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get user notifications: %w", err)
	}

	if len(notifications) == 0 {
		return nil, ErrNoNotificationsFound
	}

	return notifications, nil
}

// UpdateWithCAS writes n only if the stored version equals expectedVersion,
// incrementing the version by one. It reports whether the write was applied.
func (r *Repository) UpdateWithCAS(ctx context.Context, id string, expectedVersion int64, n model.Notification) (bool, error) {
	query := `
		UPDATE notifications
		SET status = $1, title = $2, content = $3, metadata = $4, retry_count = $5,
		    error_message = $6, scheduled_at = $7, version = version + 1, updated_at = NOW()
		WHERE id = $8 AND version = $9;
    `

	meta, err := encodeMetadata(n.Metadata)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(
		ctx, query,
		n.Status, n.Title, n.Content, meta, n.RetryCount, nullString(n.ErrorMessage), nullTime(n),
		id, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update notification: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// FindAndLockScheduledNotifications promotes up to limit due SCHEDULED notifications
// to PENDING in one statement and returns them. SKIP LOCKED keeps concurrent callers
// from claiming the same row.
func (r *Repository) FindAndLockScheduledNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	query := `
		UPDATE notifications
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id IN (
		    SELECT id FROM notifications
		    WHERE status = $2 AND scheduled_at <= NOW()
		    ORDER BY scheduled_at
		    LIMIT $3
		    FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + columns + `;
    `

	rows, err := r.db.QueryContext(ctx, query, model.StatusPending, model.StatusScheduled, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to lock scheduled notifications: %w", err)
	}

	notifications, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to lock scheduled notifications: %w", err)
	}

	return notifications, nil
}

// FindPendingNotifications returns up to limit PENDING notifications, least recently updated first.
func (r *Repository) FindPendingNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	query := `
		SELECT ` + columns + `
		FROM notifications
		WHERE status = $1
		ORDER BY updated_at
		LIMIT $2;
    `

	rows, err := r.db.QueryContext(ctx, query, model.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}

	notifications, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}

	return notifications, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(s scanner) (model.Notification, error) {
	var (
		n         model.Notification
		userID    sql.NullString
		errMsg    sql.NullString
		scheduled sql.NullTime
		meta      []byte
	)

	err := s.Scan(
		&n.ID, &userID, &n.ChannelType, &n.EventType, &n.Recipient, &n.Title, &n.Content, &meta,
		&n.Status, &scheduled, &n.RetryCount, &errMsg, &n.Version, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return model.Notification{}, err
	}

	if userID.Valid {
		n.UserID = &userID.String
	}
	if errMsg.Valid {
		n.ErrorMessage = &errMsg.String
	}
	if scheduled.Valid {
		n.ScheduledAt = &scheduled.Time
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return model.Notification{}, fmt.Errorf("decode metadata: %w", err)
		}
	}

	return n, nil
}

func scanAll(rows *sql.Rows) ([]model.Notification, error) {
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}

		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func encodeMetadata(meta map[string]string) ([]byte, error) {
	if meta == nil {
		meta = map[string]string{}
	}

	b, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	return b, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(n model.Notification) sql.NullTime {
	if n.ScheduledAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *n.ScheduledAt, Valid: true}
}
