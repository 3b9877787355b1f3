package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chronofeed/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUsers(t *testing.T, db *DB, names ...string) []uuid.UUID {
	t.Helper()
	repo := NewUserRepo(db)
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		u := &domain.User{ID: uuid.New(), Email: name + "@example.com", Username: name, DisplayName: name}
		require.NoError(t, repo.Create(context.Background(), u))
		ids = append(ids, u.ID)
	}
	return ids
}

func TestUserRepoRejectsDuplicates(t *testing.T) {
	db := NewDB()
	seedUsers(t, db, "alice")

	err := NewUserRepo(db).Create(context.Background(), &domain.User{ID: uuid.New(), Email: "alice@example.com", Username: "other"})
	assert.ErrorIs(t, err, ErrDuplicate)

	u, err := NewUserRepo(db).GetByUsername(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestConversationFindOrCreateReturnsExisting(t *testing.T) {
	db := NewDB()
	ids := seedUsers(t, db, "alice", "bob")
	repo := NewConversationRepo(db)
	u1, u2 := domain.CanonicalPair(ids[0], ids[1])

	first, created, err := repo.FindOrCreate(context.Background(), &domain.Conversation{ID: uuid.New(), User1ID: u1, User2ID: u2, CreatedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.FindOrCreate(context.Background(), &domain.Conversation{ID: uuid.New(), User1ID: u1, User2ID: u2, CreatedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Participants, 2)
}

func TestMessagesPageBackwardsAndUpdateConversation(t *testing.T) {
	db := NewDB()
	ids := seedUsers(t, db, "alice", "bob")
	convs := NewConversationRepo(db)
	msgs := NewMessageRepo(db)
	ctx := context.Background()
	u1, u2 := domain.CanonicalPair(ids[0], ids[1])

	conv, _, err := convs.FindOrCreate(ctx, &domain.Conversation{ID: uuid.New(), User1ID: u1, User2ID: u2, CreatedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)

	var sent []uuid.UUID
	for i := range 5 {
		m := &domain.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       ids[i%2],
			Content:        domain.Content{Text: string(rune('a' + i))},
			CreatedAt:      t0.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, msgs.Append(ctx, m))
		sent = append(sent, m.ID)
	}

	page, err := msgs.ListByConversation(ctx, conv.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].Content.Text)
	assert.Equal(t, "e", page[1].Content.Text)
	assert.Equal(t, "bob", page[0].SenderUsername)

	older, err := msgs.ListByConversation(ctx, conv.ID, &page[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, older, 3)
	assert.Equal(t, sent[0], older[0].ID)

	got, err := convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, sent[4], got.LastMessage.ID)
	assert.Equal(t, t0.Add(4*time.Minute), got.UpdatedAt)

	err = msgs.Append(ctx, &domain.Message{ID: uuid.New(), ConversationID: uuid.New(), SenderID: ids[0]})
	assert.Error(t, err)
}
