package inbox

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chronofeed/internal/domain"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func summary(name string) domain.UserSummary {
	return domain.UserSummary{ID: uuid.New(), Username: strings.ToLower(name), DisplayName: name}
}

func conversation(self, peer domain.UserSummary, last *domain.Message, updated time.Time) domain.Conversation {
	conv := domain.Conversation{
		ID:           uuid.New(),
		Participants: []domain.UserSummary{self, peer},
		LastMessage:  last,
		UpdatedAt:    updated,
	}
	if last != nil {
		last.ConversationID = conv.ID
	}
	return conv
}

func message(from uuid.UUID, text string, at time.Time) *domain.Message {
	return &domain.Message{ID: uuid.New(), SenderID: from, Content: domain.Content{Text: text}, CreatedAt: at}
}

func TestLoadOrdersByRecencyAndFlagsInbound(t *testing.T) {
	me := summary("Me")
	ana, ben, cleo := summary("Ana"), summary("Ben"), summary("Cleo")
	p := New(me.ID, clockwork.NewFakeClockAt(now))

	p.Load([]domain.Conversation{
		conversation(me, ana, message(ana.ID, "hey", now.Add(-3*time.Hour)), now.Add(-3*time.Hour)),
		conversation(me, ben, message(me.ID, "see you", now.Add(-5*time.Minute)), now.Add(-5*time.Minute)),
		conversation(me, cleo, nil, now.Add(-time.Hour)),
	})

	rows := p.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "ben", rows[0].Peer.Username)
	assert.Equal(t, "You: see you", rows[0].Preview)
	assert.Equal(t, "5m", rows[0].Timestamp)
	assert.False(t, rows[0].Unread)

	assert.Equal(t, "cleo", rows[1].Peer.Username)
	assert.Empty(t, rows[1].Preview)

	assert.Equal(t, "ana", rows[2].Peer.Username)
	assert.Equal(t, "3h", rows[2].Timestamp)
	assert.True(t, rows[2].Unread)
	assert.Equal(t, 1, p.UnreadCount())
}

func TestLoadKeepsExistingUnreadFlags(t *testing.T) {
	me, ana := summary("Me"), summary("Ana")
	p := New(me.ID, clockwork.NewFakeClockAt(now))
	convs := []domain.Conversation{conversation(me, ana, message(ana.ID, "hi", now), now)}

	p.Load(convs)
	p.MarkRead(ana.ID)
	p.Load(convs)

	assert.Equal(t, 0, p.UnreadCount())
}

func TestMarkUnreadMovesRowToTop(t *testing.T) {
	me, ana, ben := summary("Me"), summary("Ana"), summary("Ben")
	clock := clockwork.NewFakeClockAt(now)
	p := New(me.ID, clock)
	p.Load([]domain.Conversation{
		conversation(me, ana, message(me.ID, "old", now.Add(-time.Hour)), now.Add(-time.Hour)),
		conversation(me, ben, message(me.ID, "older", now.Add(-2*time.Hour)), now.Add(-2*time.Hour)),
	})

	clock.Advance(time.Minute)
	p.MarkUnread(ben, uuid.Nil, *message(ben.ID, "ping", clock.Now()))

	rows := p.Rows()
	assert.Equal(t, ben.ID, rows[0].Peer.ID)
	assert.True(t, rows[0].Unread)
	assert.Equal(t, "ping", rows[0].Preview)
	assert.Equal(t, "now", rows[0].Timestamp)
	assert.NotEqual(t, uuid.Nil, rows[0].ConversationID)

	p.MarkRead(ben.ID)
	assert.Equal(t, 0, p.UnreadCount())
}

func TestMarkUnreadAddsUnknownPeer(t *testing.T) {
	me, dan := summary("Me"), summary("Dan")
	p := New(me.ID, clockwork.NewFakeClockAt(now))

	convID := uuid.New()
	p.MarkUnread(dan, convID, *message(dan.ID, "first contact", now))

	rows := p.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, convID, rows[0].ConversationID)
	assert.True(t, rows[0].Unread)
}

func TestUpdateDoesNotFlagUnread(t *testing.T) {
	me, ana := summary("Me"), summary("Ana")
	p := New(me.ID, clockwork.NewFakeClockAt(now))

	p.Update(ana, uuid.New(), *message(me.ID, "sent", now))

	assert.Equal(t, 0, p.UnreadCount())
	assert.Equal(t, "You: sent", p.Rows()[0].Preview)
}

func TestPreviewTruncatesAndRendersAttachments(t *testing.T) {
	me, ana, ben := summary("Me"), summary("Ana"), summary("Ben")
	p := New(me.ID, clockwork.NewFakeClockAt(now))

	long := strings.Repeat("a", 60)
	p.MarkUnread(ana, uuid.New(), *message(ana.ID, long, now))
	p.MarkUnread(ben, uuid.New(), domain.Message{
		ID:        uuid.New(),
		SenderID:  ben.ID,
		Content:   domain.Content{Attachments: []domain.Attachment{{Kind: domain.AttachmentAudio, URL: "https://cdn/x.webm"}}},
		CreatedAt: now.Add(-time.Second),
	})

	rows := p.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 40, len([]rune(rows[0].Preview)))
	assert.True(t, strings.HasSuffix(rows[0].Preview, "…"))
	assert.Equal(t, "🎤 Voice message", rows[1].Preview)
}

func TestRelativeTime(t *testing.T) {
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{30 * time.Hour, "yesterday"},
		{2*24*time.Hour + time.Hour, "2d"},
		{10 * 24 * time.Hour, "Feb 29"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RelativeTime(now.Add(-tc.ago), now), tc.ago.String())
	}
}
