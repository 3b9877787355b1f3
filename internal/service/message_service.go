package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/metrics"
	"github.com/vedran77/chronofeed/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	previewRunes    = 40
)

// Relay pushes a stored message to the receiver's live connections and
// reports how many connections accepted it.
type Relay interface {
	RelayMessage(msg *domain.Message, receiverID uuid.UUID) int
}

// EventPublisher emits domain events to the message bus.
type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, msg *domain.Message, receiverID uuid.UUID) error
}

type MessageService struct {
	messageRepo   repository.MessageRepository
	convRepo      repository.ConversationRepository
	notifications *NotificationService
	clock         clockwork.Clock
	relay         Relay
	publisher     EventPublisher
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	notifications *NotificationService,
	clock clockwork.Clock,
) *MessageService {
	return &MessageService{
		messageRepo:   messageRepo,
		convRepo:      convRepo,
		notifications: notifications,
		clock:         clock,
	}
}

// SetRelay sets the real-time relay (optional dependency).
func (s *MessageService) SetRelay(r Relay) {
	s.relay = r
}

// SetPublisher sets the message bus publisher (optional dependency).
func (s *MessageService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

type SendMessageInput struct {
	ConversationID uuid.UUID      `json:"conversation_id"`
	Content        domain.Content `json:"content"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// Append stores a message from userID and delivers it to the other
// participant. Delivery problems are logged, never returned.
func (s *MessageService) Append(ctx context.Context, userID, conversationID uuid.UUID, content domain.Content) (*domain.Message, error) {
	if err := content.Validate(); err != nil {
		return nil, invalidErr(err)
	}

	conv, err := loadParticipantConversation(ctx, s.convRepo, userID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             newID(),
		ConversationID: conv.ID,
		SenderID:       userID,
		Content:        content,
		CreatedAt:      s.clock.Now(),
	}
	if sender, ok := conv.Participant(userID); ok {
		msg.SenderUsername = sender.Username
		msg.SenderDisplayName = sender.DisplayName
		msg.SenderAvatarURL = sender.AvatarURL
	}

	if err := s.messageRepo.Append(ctx, msg); err != nil {
		return nil, persistErr("appending message", err)
	}
	metrics.MessagesSent.WithLabelValues(string(content.Kind())).Inc()

	receiverID := conv.Counterpart(userID)
	s.deliver(ctx, msg, receiverID)

	return msg, nil
}

func (s *MessageService) deliver(ctx context.Context, msg *domain.Message, receiverID uuid.UUID) {
	if s.publisher != nil {
		if err := s.publisher.PublishMessageCreated(ctx, msg, receiverID); err != nil {
			slog.WarnContext(ctx, "publish message created failed", "message_id", msg.ID, "error", err)
		}
	}

	delivered := 0
	if s.relay != nil {
		delivered = s.relay.RelayMessage(msg, receiverID)
	}
	if delivered > 0 || s.notifications == nil {
		return
	}

	// Receiver has no live connection: leave a notification instead.
	sender := msg.SenderDisplayName
	if sender == "" {
		sender = msg.SenderUsername
	}
	_, err := s.notifications.Record(ctx, RecordInput{
		RecipientID: receiverID,
		SenderID:    msg.SenderID,
		Type:        domain.NotificationSystem,
		Content:     fmt.Sprintf("%s: %s", sender, msg.Content.Preview(previewRunes)),
		Reference:   &domain.Reference{ID: msg.ID, Kind: domain.ReferenceMessage},
	})
	if err != nil {
		slog.WarnContext(ctx, "offline notification failed", "message_id", msg.ID, "error", err)
	}
}

func (s *MessageService) ListForConversation(ctx context.Context, userID, conversationID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	if _, err := loadParticipantConversation(ctx, s.convRepo, userID, conversationID); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)

	// Dohvati limit+1 da znamo ima li jos
	messages, err := s.messageRepo.ListByConversation(ctx, conversationID, before, limit+1)
	if err != nil {
		return nil, persistErr("listing messages", err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:] // zadrzi zadnjih "limit" (najnovije)
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// newID returns a time-ordered id so rows sort by insertion within a timestamp.
func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
