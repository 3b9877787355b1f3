package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/repository"
)

type ConversationService struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	clock    clockwork.Clock
}

func NewConversationService(convRepo repository.ConversationRepository, userRepo repository.UserRepository, clock clockwork.Clock) *ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		userRepo: userRepo,
		clock:    clock,
	}
}

type CreateConversationInput struct {
	CounterpartID uuid.UUID `json:"counterpart_id"`
}

// FindOrCreate returns the one conversation between userID and
// counterpartID, creating it on first use. Argument order does not matter.
func (s *ConversationService) FindOrCreate(ctx context.Context, userID, counterpartID uuid.UUID) (*domain.Conversation, error) {
	if userID == counterpartID {
		return nil, ErrSelfConversation
	}

	other, err := s.userRepo.GetByID(ctx, counterpartID)
	if err != nil {
		return nil, persistErr("getting counterpart", err)
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	// Sort IDs so user1 < user2 (canonical order for CHECK constraint)
	u1, u2 := domain.CanonicalPair(userID, counterpartID)
	now := s.clock.Now()
	conv, _, err := s.convRepo.FindOrCreate(ctx, &domain.Conversation{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, persistErr("finding or creating conversation", err)
	}
	return conv, nil
}

func (s *ConversationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistErr("listing conversations", err)
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// Get returns a conversation the user participates in.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	return loadParticipantConversation(ctx, s.convRepo, userID, conversationID)
}

func loadParticipantConversation(ctx context.Context, repo repository.ConversationRepository, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, persistErr("getting conversation", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}
