package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/repository"
)

type NotificationRepo struct {
	db *DB
}

func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := *n
	r.db.notifications = append(r.db.notifications, &cp)
	return nil
}

func (r *NotificationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, n := range r.db.notifications {
		if n.ID == id {
			cp := r.withSender(*n)
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *NotificationRepo) List(_ context.Context, recipientID uuid.UUID, filter repository.NotificationFilter) ([]domain.Notification, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []domain.Notification
	// Walk newest first so the stable sort keeps insertion order among equal timestamps.
	for i := len(r.db.notifications) - 1; i >= 0; i-- {
		n := r.db.notifications[i]
		if n.RecipientID != recipientID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		out = append(out, r.withSender(*n))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsRead != out[j].IsRead {
			return !out[i].IsRead
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, n := range r.db.notifications {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, recipientID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, notif := range r.db.notifications {
		if notif.RecipientID == recipientID && !notif.IsRead {
			notif.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	count := 0
	for _, n := range r.db.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) withSender(n domain.Notification) domain.Notification {
	s := r.db.summary(n.SenderID)
	n.SenderUsername = s.Username
	n.SenderDisplayName = s.DisplayName
	n.SenderAvatarURL = s.AvatarURL
	return n
}
