package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeJoin        = "join"
	EventTypeSendMessage = "send_message"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeJoined         = "joined"
	EventTypeReceiveMessage = "receive_message"
	EventTypeNotification   = "notification"
	EventTypePong           = "pong"
	EventTypeError          = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type JoinPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type SendMessagePayload struct {
	ReceiverID uuid.UUID      `json:"receiver_id"`
	Content    domain.Content `json:"content"`
}

// --- Server → Client payloads ---

// ReceiveMessagePayload is pushed to the receiver's room. ConversationID and
// MessageID are set only for messages that went through the store.
type ReceiveMessagePayload struct {
	SenderID          uuid.UUID      `json:"sender_id"`
	ReceiverID        uuid.UUID      `json:"receiver_id"`
	ConversationID    *uuid.UUID     `json:"conversation_id,omitempty"`
	MessageID         *uuid.UUID     `json:"message_id,omitempty"`
	SenderUsername    string         `json:"sender_username,omitempty"`
	SenderDisplayName string         `json:"sender_display_name,omitempty"`
	Content           domain.Content `json:"content"`
	CreatedAt         time.Time      `json:"created_at"`
}

type NotificationPayload struct {
	domain.Notification
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}

// Message rebuilds the domain message carried by a receive_message payload.
func (p ReceiveMessagePayload) Message() domain.Message {
	msg := domain.Message{
		SenderID:          p.SenderID,
		Content:           p.Content,
		CreatedAt:         p.CreatedAt,
		SenderUsername:    p.SenderUsername,
		SenderDisplayName: p.SenderDisplayName,
	}
	if p.ConversationID != nil {
		msg.ConversationID = *p.ConversationID
	}
	if p.MessageID != nil {
		msg.ID = *p.MessageID
	}
	return msg
}
