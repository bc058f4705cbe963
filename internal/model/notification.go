package model

import (
	"errors"
	"fmt"
	"time"
)

// ChannelType is the delivery transport of a notification.
type ChannelType string

const (
	ChannelEmail ChannelType = "EMAIL"
	ChannelChat  ChannelType = "CHAT"
	ChannelPush  ChannelType = "PUSH"
)

// Valid reports whether c is one of the supported channels.
func (c ChannelType) Valid() bool {
	switch c {
	case ChannelEmail, ChannelChat, ChannelPush:
		return true
	}
	return false
}

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
)

// ErrIllegalTransition is returned when a status change is not an edge of the state machine.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions lists the legal edges of the notification state machine.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusPending},
	StatusPending:   {StatusSent, StatusFailed},
	StatusFailed:    {StatusPending},
}

// CanTransition reports whether from -> to is a legal edge.
// FAILED -> PENDING additionally depends on the retry budget, see Notification.MarkPending.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Notification represents one logical delivery intent.
type Notification struct {
	ID           string            `json:"id"`                      // opaque identifier, immutable
	UserID       *string           `json:"user_id,omitempty"`       // nil for unauthenticated recipients
	ChannelType  ChannelType       `json:"channel_type"`            // EMAIL, CHAT or PUSH
	EventType    string            `json:"event_type"`              // business event that produced it
	Recipient    string            `json:"recipient"`               // email address, webhook URL or device token
	Title        string            `json:"title"`                   // rendered subject
	Content      string            `json:"content"`                 // rendered body
	Metadata     map[string]string `json:"metadata,omitempty"`      // rendering context and transport metadata
	Status       Status            `json:"status"`                  // current state
	ScheduledAt  *time.Time        `json:"scheduled_at,omitempty"`  // nil means "send now"
	RetryCount   int               `json:"retry_count"`             // retry attempts consumed so far
	ErrorMessage *string           `json:"error_message,omitempty"` // last failure reason
	Version      int64             `json:"version"`                 // optimistic lock, +1 per persisted mutation
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsRetryable reports whether a FAILED notification may be attempted again.
func (n Notification) IsRetryable(maxRetry int) bool {
	return n.Status == StatusFailed && n.RetryCount < maxRetry
}

// IsTerminal reports whether the notification can never change state again.
func (n Notification) IsTerminal(maxRetry int) bool {
	switch n.Status {
	case StatusSent:
		return true
	case StatusFailed:
		return n.RetryCount >= maxRetry
	}
	return false
}

// Clone returns a copy that shares no mutable state with n.
func (n Notification) Clone() Notification {
	c := n
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	if n.UserID != nil {
		u := *n.UserID
		c.UserID = &u
	}
	if n.ScheduledAt != nil {
		t := *n.ScheduledAt
		c.ScheduledAt = &t
	}
	if n.ErrorMessage != nil {
		e := *n.ErrorMessage
		c.ErrorMessage = &e
	}
	return c
}

// MarkSent moves a PENDING notification to SENT and merges transport metadata.
func (n *Notification) MarkSent(meta map[string]string) error {
	if err := n.transition(StatusSent); err != nil {
		return err
	}
	n.ErrorMessage = nil
	for k, v := range meta {
		if n.Metadata == nil {
			n.Metadata = make(map[string]string, len(meta))
		}
		n.Metadata[k] = v
	}
	return nil
}

// MarkFailed moves a PENDING notification to FAILED with the given reason.
func (n *Notification) MarkFailed(reason string) error {
	if err := n.transition(StatusFailed); err != nil {
		return err
	}
	n.ErrorMessage = &reason
	return nil
}

// MarkPending promotes a SCHEDULED notification, or re-arms a retryable FAILED one
// consuming one unit of the retry budget.
func (n *Notification) MarkPending(maxRetry int) error {
	if n.Status == StatusFailed && !n.IsRetryable(maxRetry) {
		return fmt.Errorf("%w: retry budget exhausted (%d/%d)", ErrIllegalTransition, n.RetryCount, maxRetry)
	}

	from := n.Status
	if err := n.transition(StatusPending); err != nil {
		return err
	}
	if from == StatusFailed {
		n.RetryCount++
	}
	return nil
}

func (n *Notification) transition(to Status) error {
	if !CanTransition(n.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, n.Status, to)
	}
	n.Status = to
	return nil
}
