package dto

import "time"

// CreateRequest is the body of POST /api/notifications. A non-empty SendAt
// creates a scheduled notification.
type CreateRequest struct {
	UserID    *string           `json:"user_id" validate:"omitempty,min=1"`
	Channel   string            `json:"channel" validate:"required,oneof=EMAIL CHAT PUSH"`
	EventType string            `json:"event_type" validate:"required"`
	Recipient string            `json:"recipient" validate:"required"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	SendAt    string            `json:"send_at" validate:"omitempty"` // RFC 3339
}

// StatusResponse is returned by GET /api/notifications/:id/status.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ListQuery holds the pagination of GET /api/users/:user_id/notifications.
type ListQuery struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// ParseSendAt parses the optional send time.
func (r CreateRequest) ParseSendAt() (*time.Time, error) {
	if r.SendAt == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, r.SendAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
