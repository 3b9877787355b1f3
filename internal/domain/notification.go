package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationLike                NotificationType = "like"
	NotificationComment             NotificationType = "comment"
	NotificationFriendRequest       NotificationType = "friend_request"
	NotificationAcceptFriendRequest NotificationType = "accept_friend_request"
	NotificationGroupInvite         NotificationType = "group_invite"
	NotificationSystem              NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationFriendRequest,
		NotificationAcceptFriendRequest, NotificationGroupInvite, NotificationSystem:
		return true
	}
	return false
}

type ReferenceKind string

const (
	ReferencePost    ReferenceKind = "post"
	ReferenceComment ReferenceKind = "comment"
	ReferenceGroup   ReferenceKind = "group"
	ReferenceMessage ReferenceKind = "message"
)

func (k ReferenceKind) Valid() bool {
	switch k {
	case ReferencePost, ReferenceComment, ReferenceGroup, ReferenceMessage:
		return true
	}
	return false
}

// Reference points at the entity that triggered a notification.
type Reference struct {
	ID   uuid.UUID     `json:"id"`
	Kind ReferenceKind `json:"kind"`
}

type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	SenderID    uuid.UUID        `json:"sender_id"`
	Type        NotificationType `json:"type"`
	Reference   *Reference       `json:"reference,omitempty"`
	Content     string           `json:"content"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
	// Joined fields
	SenderUsername    string  `json:"sender_username,omitempty"`
	SenderDisplayName string  `json:"sender_display_name,omitempty"`
	SenderAvatarURL   *string `json:"sender_avatar_url,omitempty"`
}
