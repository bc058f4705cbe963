package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
)

// MemoryRepository is a process-local store with the same CAS and locking
// guarantees as Repository. A single mutex serialises every operation.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[string]model.Notification
	now  func() time.Time
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows: make(map[string]model.Notification),
		now:  time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Create(_ context.Context, n model.Notification) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n = n.Clone()
	n.Version = 0
	n.CreatedAt = now
	n.UpdatedAt = now
	r.rows[n.ID] = n

	return n.Clone(), nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.rows[id]
	if !ok {
		return model.Notification{}, ErrNotificationNotFound
	}

	return n.Clone(), nil
}

func (r *MemoryRepository) FindByUserID(_ context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Notification
	for _, n := range r.rows {
		if n.UserID != nil && *n.UserID == userID {
			out = append(out, n.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, ErrNoNotificationsFound
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}

	return out, nil
}

func (r *MemoryRepository) UpdateWithCAS(_ context.Context, id string, expectedVersion int64, n model.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.rows[id]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}

	next := n.Clone()
	next.ID = stored.ID
	next.UserID = stored.UserID
	next.ChannelType = stored.ChannelType
	next.EventType = stored.EventType
	next.Recipient = stored.Recipient
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1
	next.UpdatedAt = r.now()
	r.rows[id] = next

	return true, nil
}

func (r *MemoryRepository) FindAndLockScheduledNotifications(_ context.Context, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	var due []model.Notification
	for _, n := range r.rows {
		if n.Status == model.StatusScheduled && n.ScheduledAt != nil && !n.ScheduledAt.After(now) {
			due = append(due, n)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	if limit > 0 && limit < len(due) {
		due = due[:limit]
	}

	out := make([]model.Notification, 0, len(due))
	for _, n := range due {
		n.Status = model.StatusPending
		n.Version++
		n.UpdatedAt = now
		r.rows[n.ID] = n
		out = append(out, n.Clone())
	}

	return out, nil
}

func (r *MemoryRepository) FindPendingNotifications(_ context.Context, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Notification
	for _, n := range r.rows {
		if n.Status == model.StatusPending {
			out = append(out, n.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}

	return out, nil
}
