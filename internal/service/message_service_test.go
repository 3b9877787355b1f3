package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chronofeed/internal/domain"
)

func TestAppendKeepsOrderAndMovesLastMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	conv := f.conversation(t, alice, bob)

	for _, s := range []string{"one", "two", "three"} {
		_, err := f.messages.Append(ctx, alice, conv.ID, text(s))
		require.NoError(t, err)
	}

	page, err := f.messages.ListForConversation(ctx, bob, conv.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "one", page.Messages[0].Content.Text)
	assert.Equal(t, "three", page.Messages[2].Content.Text)
	assert.Equal(t, "Alice", page.Messages[0].SenderDisplayName)
	assert.False(t, page.HasMore)

	got, err := f.conversations.Get(ctx, bob, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, page.Messages[2].ID, got.LastMessage.ID)
}

func TestAppendSameTimestampKeepsInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	conv := f.conversation(t, alice, bob)

	// The fake clock does not move, so every message shares a timestamp.
	for _, s := range []string{"a", "b", "c", "d"} {
		_, err := f.messages.Append(ctx, bob, conv.ID, text(s))
		require.NoError(t, err)
	}

	page, err := f.messages.ListForConversation(ctx, alice, conv.ID, nil, 0)
	require.NoError(t, err)
	var got []string
	for _, m := range page.Messages {
		got = append(got, m.Content.Text)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestListForConversationPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	conv := f.conversation(t, alice, bob)

	for _, s := range []string{"1", "2", "3", "4", "5"} {
		_, err := f.messages.Append(ctx, alice, conv.ID, text(s))
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	latest, err := f.messages.ListForConversation(ctx, alice, conv.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, latest.Messages, 2)
	assert.True(t, latest.HasMore)
	assert.Equal(t, "4", latest.Messages[0].Content.Text)
	assert.Equal(t, "5", latest.Messages[1].Content.Text)

	before := latest.Messages[0].ID
	older, err := f.messages.ListForConversation(ctx, alice, conv.ID, &before, 2)
	require.NoError(t, err)
	require.Len(t, older.Messages, 2)
	assert.True(t, older.HasMore)
	assert.Equal(t, "2", older.Messages[0].Content.Text)
	assert.Equal(t, "3", older.Messages[1].Content.Text)
}

func TestAppendAttachmentOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	conv := f.conversation(t, alice, bob)

	content := domain.Content{Attachments: []domain.Attachment{
		{Kind: domain.AttachmentImage, URL: "https://cdn.example.com/a.png"},
		{Kind: domain.AttachmentAudio, URL: "https://cdn.example.com/v.webm"},
	}}
	_, err := f.messages.Append(ctx, alice, conv.ID, content)
	require.NoError(t, err)

	page, err := f.messages.ListForConversation(ctx, bob, conv.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	got := page.Messages[0].Content
	assert.Empty(t, got.Text)
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, got.Images())
	audio, ok := got.Audio()
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/v.webm", audio)
}

func TestAppendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	eve := f.user(t, "eve", "Eve")
	conv := f.conversation(t, alice, bob)

	tests := []struct {
		name    string
		sender  uuid.UUID
		convID  uuid.UUID
		content domain.Content
		kind    error
	}{
		{"blank text", alice, conv.ID, text("   \n"), ErrInvalidArgument},
		{"two voice clips", alice, conv.ID, domain.Content{Attachments: []domain.Attachment{
			{Kind: domain.AttachmentAudio, URL: "a"}, {Kind: domain.AttachmentAudio, URL: "b"},
		}}, ErrInvalidArgument},
		{"unknown conversation", alice, uuid.New(), text("hi"), ErrNotFound},
		{"outsider", eve, conv.ID, text("hi"), ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Append(ctx, tt.sender, tt.convID, tt.content)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	page, err := f.messages.ListForConversation(ctx, alice, conv.ID, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
}

func TestAppendRelaysToOnlineReceiverWithoutNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	conv := f.conversation(t, alice, bob)

	relay := &fakeRelay{online: 1}
	f.messages.SetRelay(relay)

	msg, err := f.messages.Append(ctx, alice, conv.ID, text("hi"))
	require.NoError(t, err)

	require.Len(t, relay.relayed, 1)
	assert.Equal(t, msg.ID, relay.relayed[0].ID)
	count, err := f.notifications.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAppendNotifiesOfflineReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	conv := f.conversation(t, alice, bob)
	f.messages.SetRelay(&fakeRelay{online: 0})

	msg, err := f.messages.Append(ctx, alice, conv.ID, text("hi"))
	require.NoError(t, err)

	unread, err := f.notifications.ListUnread(ctx, bob, 0)
	require.NoError(t, err)
	require.Len(t, unread.Notifications, 1)
	n := unread.Notifications[0]
	assert.Equal(t, alice, n.SenderID)
	assert.Equal(t, domain.NotificationSystem, n.Type)
	assert.Equal(t, "Alice: hi", n.Content)
	require.NotNil(t, n.Reference)
	assert.Equal(t, msg.ID, n.Reference.ID)
	assert.Equal(t, domain.ReferenceMessage, n.Reference.Kind)

	// The sender is never notified about their own message.
	own, err := f.notifications.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, own)
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) PublishMessageCreated(context.Context, *domain.Message, uuid.UUID) error {
	p.calls++
	return errors.New("broker down")
}

func TestAppendIgnoresPublishFailure(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	conv := f.conversation(t, alice, bob)
	pub := &failingPublisher{}
	f.messages.SetPublisher(pub)

	_, err := f.messages.Append(context.Background(), alice, conv.ID, text("still stored"))

	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)
}

func TestListForConversationRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "Alice")
	bob := f.user(t, "bob", "Bob")
	eve := f.user(t, "eve", "Eve")
	conv := f.conversation(t, alice, bob)

	_, err := f.messages.ListForConversation(context.Background(), eve, conv.ID, nil, 0)
	assert.ErrorIs(t, err, ErrForbidden)
}
