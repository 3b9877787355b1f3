// Package events carries domain events over Kafka: message creation is
// published, notification requests from other services are consumed.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

// MessageCreated is published on the messages topic after a message is stored.
type MessageCreated struct {
	MessageID      uuid.UUID      `json:"message_id"`
	ConversationID uuid.UUID      `json:"conversation_id"`
	SenderID       uuid.UUID      `json:"sender_id"`
	ReceiverID     uuid.UUID      `json:"receiver_id"`
	Content        domain.Content `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NotificationRequested is consumed from the notifications topic; other
// services use it to notify a user (likes, comments, friend requests).
type NotificationRequested struct {
	RecipientID uuid.UUID               `json:"recipient_id"`
	SenderID    uuid.UUID               `json:"sender_id"`
	Type        domain.NotificationType `json:"type"`
	Content     string                  `json:"content"`
	Reference   *domain.Reference       `json:"reference,omitempty"`
}

func NewMessageCreated(msg *domain.Message, receiverID uuid.UUID) MessageCreated {
	return MessageCreated{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		ReceiverID:     receiverID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}
