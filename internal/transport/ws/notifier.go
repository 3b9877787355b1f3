package ws

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

// HubNotifier implements service.Relay and service.NotificationPusher using
// the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) RelayMessage(msg *domain.Message, receiverID uuid.UUID) int {
	convID, msgID := msg.ConversationID, msg.ID
	evt, err := NewEvent(EventTypeReceiveMessage, ReceiveMessagePayload{
		SenderID:          msg.SenderID,
		ReceiverID:        receiverID,
		ConversationID:    &convID,
		MessageID:         &msgID,
		SenderUsername:    msg.SenderUsername,
		SenderDisplayName: msg.SenderDisplayName,
		Content:           msg.Content,
		CreatedAt:         msg.CreatedAt,
	})
	if err != nil {
		slog.Error("ws notifier: marshal error", "error", err)
		return 0
	}
	return n.hub.Relay(receiverID, evt)
}

func (n *HubNotifier) PushNotification(notif *domain.Notification) {
	evt, err := NewEvent(EventTypeNotification, NotificationPayload{Notification: *notif})
	if err != nil {
		slog.Error("ws notifier: marshal error", "error", err)
		return
	}
	n.hub.Relay(notif.RecipientID, evt)
}
