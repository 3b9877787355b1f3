package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

type ConversationRepo struct {
	db *DB
}

func NewConversationRepo(db *DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) FindOrCreate(_ context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := pairKey{conv.User1ID, conv.User2ID}
	if id, ok := r.db.pairs[key]; ok {
		return r.db.hydrate(r.db.conversations[id]), false, nil
	}

	cp := *conv
	cp.Participants = nil
	cp.LastMessage = nil
	r.db.conversations[cp.ID] = &cp
	r.db.pairs[key] = cp.ID
	return r.db.hydrate(&cp), true, nil
}

func (r *ConversationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	c, ok := r.db.conversations[id]
	if !ok {
		return nil, nil
	}
	return r.db.hydrate(c), nil
}

func (r *ConversationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var convs []domain.Conversation
	for _, c := range r.db.conversations {
		if c.HasParticipant(userID) {
			convs = append(convs, *r.db.hydrate(c))
		}
	}
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].CreatedAt.After(convs[j].CreatedAt)
		}
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

// hydrate must be called with mu held.
func (db *DB) hydrate(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Participants = []domain.UserSummary{db.summary(c.User1ID), db.summary(c.User2ID)}
	if c.LastMessageID != nil {
		if m, ok := db.messages[*c.LastMessageID]; ok {
			last := db.withSender(*m)
			cp.LastMessage = &last
		}
	}
	return &cp
}
