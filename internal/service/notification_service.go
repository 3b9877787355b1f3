package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/metrics"
	"github.com/vedran77/chronofeed/internal/repository"
)

// NotificationPusher forwards a freshly recorded notification to live clients.
type NotificationPusher interface {
	PushNotification(n *domain.Notification)
}

type NotificationService struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
	clock    clockwork.Clock
	pusher   NotificationPusher
}

func NewNotificationService(repo repository.NotificationRepository, userRepo repository.UserRepository, clock clockwork.Clock) *NotificationService {
	return &NotificationService{
		repo:     repo,
		userRepo: userRepo,
		clock:    clock,
	}
}

func (s *NotificationService) SetPusher(p NotificationPusher) {
	s.pusher = p
}

type RecordInput struct {
	RecipientID uuid.UUID               `json:"recipient_id"`
	SenderID    uuid.UUID               `json:"sender_id"`
	Type        domain.NotificationType `json:"type"`
	Content     string                  `json:"content"`
	Reference   *domain.Reference       `json:"reference,omitempty"`
}

type NotificationListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

func (s *NotificationService) Record(ctx context.Context, input RecordInput) (*domain.Notification, error) {
	if !input.Type.Valid() {
		return nil, ErrUnknownType
	}
	if input.Reference != nil && !input.Reference.Kind.Valid() {
		return nil, ErrUnknownReference
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyNotification
	}

	if err := s.requireUser(ctx, input.RecipientID); err != nil {
		return nil, err
	}
	sender, err := s.userRepo.GetByID(ctx, input.SenderID)
	if err != nil {
		return nil, persistErr("getting sender", err)
	}
	if sender == nil {
		return nil, ErrUserNotFound
	}

	n := &domain.Notification{
		ID:                newID(),
		RecipientID:       input.RecipientID,
		SenderID:          input.SenderID,
		Type:              input.Type,
		Reference:         input.Reference,
		Content:           content,
		CreatedAt:         s.clock.Now(),
		SenderUsername:    sender.Username,
		SenderDisplayName: sender.DisplayName,
		SenderAvatarURL:   sender.AvatarURL,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, persistErr("creating notification", err)
	}
	metrics.NotificationsRecorded.WithLabelValues(string(n.Type)).Inc()
	slog.DebugContext(ctx, "notification recorded", "id", n.ID, "recipient_id", n.RecipientID, "type", n.Type)

	if s.pusher != nil {
		s.pusher.PushNotification(n)
	}
	return n, nil
}

// List returns unread notifications first, then the most recent read ones.
func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, limit int) (*NotificationListResponse, error) {
	items, err := s.repo.List(ctx, recipientID, repository.NotificationFilter{Limit: clampLimit(limit)})
	if err != nil {
		return nil, persistErr("listing notifications", err)
	}
	return s.withCount(ctx, recipientID, items)
}

func (s *NotificationService) ListUnread(ctx context.Context, recipientID uuid.UUID, limit int) (*NotificationListResponse, error) {
	items, err := s.repo.List(ctx, recipientID, repository.NotificationFilter{UnreadOnly: true, Limit: clampLimit(limit)})
	if err != nil {
		return nil, persistErr("listing unread notifications", err)
	}
	return s.withCount(ctx, recipientID, items)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	n, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, persistErr("counting unread notifications", err)
	}
	return n, nil
}

// MarkRead is idempotent; a read notification never becomes unread again.
func (s *NotificationService) MarkRead(ctx context.Context, id, requesterID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return persistErr("getting notification", err)
	}
	if n == nil {
		return ErrNotificationNotFound
	}
	if n.RecipientID != requesterID {
		return ErrNotRecipient
	}
	if n.IsRead {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return persistErr("marking notification read", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, persistErr("marking all notifications read", err)
	}
	return n, nil
}

func (s *NotificationService) withCount(ctx context.Context, recipientID uuid.UUID, items []domain.Notification) (*NotificationListResponse, error) {
	count, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return &NotificationListResponse{Notifications: items, UnreadCount: count}, nil
}

func (s *NotificationService) requireUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return persistErr("getting user", err)
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}
