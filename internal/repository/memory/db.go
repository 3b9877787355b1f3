// Package memory provides in-process repositories used by STORE=memory and
// by tests. All repos created from one DB share state so joins resolve.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

type pairKey [2]uuid.UUID

type DB struct {
	mu sync.RWMutex

	users         map[uuid.UUID]*domain.User
	conversations map[uuid.UUID]*domain.Conversation
	pairs         map[pairKey]uuid.UUID
	messages      map[uuid.UUID]*domain.Message
	byConv        map[uuid.UUID][]uuid.UUID
	notifications []*domain.Notification
}

func NewDB() *DB {
	return &DB{
		users:         make(map[uuid.UUID]*domain.User),
		conversations: make(map[uuid.UUID]*domain.Conversation),
		pairs:         make(map[pairKey]uuid.UUID),
		messages:      make(map[uuid.UUID]*domain.Message),
		byConv:        make(map[uuid.UUID][]uuid.UUID),
	}
}

// summary must be called with mu held.
func (db *DB) summary(id uuid.UUID) domain.UserSummary {
	if u, ok := db.users[id]; ok {
		return u.Summary()
	}
	return domain.UserSummary{ID: id}
}

// withSender must be called with mu held.
func (db *DB) withSender(m domain.Message) domain.Message {
	s := db.summary(m.SenderID)
	m.SenderUsername = s.Username
	m.SenderDisplayName = s.DisplayName
	m.SenderAvatarURL = s.AvatarURL
	return m
}
