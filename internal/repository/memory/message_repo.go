package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

type MessageRepo struct {
	db *DB
}

func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Append(_ context.Context, msg *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	conv, ok := r.db.conversations[msg.ConversationID]
	if !ok {
		return fmt.Errorf("conversation %s does not exist", msg.ConversationID)
	}

	cp := *msg
	r.db.messages[cp.ID] = &cp
	r.db.byConv[cp.ConversationID] = append(r.db.byConv[cp.ConversationID], cp.ID)

	id := cp.ID
	conv.LastMessageID = &id
	conv.UpdatedAt = cp.CreatedAt
	return nil
}

func (r *MessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	m, ok := r.db.messages[id]
	if !ok {
		return nil, nil
	}
	msg := r.db.withSender(*m)
	return &msg, nil
}

func (r *MessageRepo) ListByConversation(_ context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := r.db.byConv[conversationID]
	end := len(ids)
	if before != nil {
		end = 0
		for i, id := range ids {
			if id == *before {
				end = i
				break
			}
		}
	}
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	messages := make([]domain.Message, 0, end-start)
	for _, id := range ids[start:end] {
		messages = append(messages, r.db.withSender(*r.db.messages[id]))
	}
	return messages, nil
}
