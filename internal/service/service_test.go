package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/repository/memory"
)

type fixture struct {
	clock         *clockwork.FakeClock
	users         *memory.UserRepo
	conversations *ConversationService
	messages      *MessageService
	notifications *NotificationService
	auth          *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.NewDB()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	users := memory.NewUserRepo(db)
	convRepo := memory.NewConversationRepo(db)
	notifications := NewNotificationService(memory.NewNotificationRepo(db), users, clock)

	return &fixture{
		clock:         clock,
		users:         users,
		conversations: NewConversationService(convRepo, users, clock),
		messages:      NewMessageService(memory.NewMessageRepo(db), convRepo, notifications, clock),
		notifications: notifications,
		auth:          NewAuthService(users, "test-secret", clock),
	}
}

func (f *fixture) user(t *testing.T, username, displayName string) uuid.UUID {
	t.Helper()
	u := &domain.User{
		ID:          uuid.New(),
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) conversation(t *testing.T, a, b uuid.UUID) *domain.Conversation {
	t.Helper()
	conv, err := f.conversations.FindOrCreate(context.Background(), a, b)
	require.NoError(t, err)
	return conv
}

func text(s string) domain.Content {
	return domain.Content{Text: s}
}

// fakeRelay records relayed messages and reports a fixed number of receivers.
type fakeRelay struct {
	online  int
	relayed []*domain.Message
}

func (r *fakeRelay) RelayMessage(msg *domain.Message, _ uuid.UUID) int {
	r.relayed = append(r.relayed, msg)
	return r.online
}
