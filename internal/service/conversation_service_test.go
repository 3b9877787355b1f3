package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateIsOrderIndependent(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")

	first := f.conversation(t, alice, bob)
	second := f.conversation(t, bob, alice)

	assert.Equal(t, first.ID, second.ID)
	require.Len(t, first.Participants, 2)
	names := []string{first.Participants[0].Username, first.Participants[1].Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestFindOrCreateConcurrentCallersConverge(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")

	const callers = 16
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, b := alice, bob
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := f.conversations.FindOrCreate(context.Background(), a, b)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	convs, err := f.conversations.ListForUser(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestFindOrCreateRejectsSelfAndUnknown(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")

	_, err := f.conversations.FindOrCreate(context.Background(), alice, alice)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.conversations.FindOrCreate(context.Background(), alice, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForUserOrdersByRecentActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	carol := f.user(t, "carol", "Carol")

	withBob := f.conversation(t, alice, bob)
	f.clock.Advance(time.Minute)
	withCarol := f.conversation(t, alice, carol)

	f.clock.Advance(time.Minute)
	_, err := f.messages.Append(ctx, bob, withBob.ID, text("bump"))
	require.NoError(t, err)

	convs, err := f.conversations.ListForUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, withBob.ID, convs[0].ID)
	assert.Equal(t, withCarol.ID, convs[1].ID)

	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "bump", convs[0].LastMessage.Content.Text)
	assert.Equal(t, "bob", convs[0].LastMessage.SenderUsername)
	assert.Nil(t, convs[1].LastMessage)
}

func TestGetRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	eve := f.user(t, "eve", "Eve")
	conv := f.conversation(t, alice, bob)

	_, err := f.conversations.Get(context.Background(), eve, conv.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.conversations.Get(context.Background(), alice, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
