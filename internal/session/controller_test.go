package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/inbox"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSender struct {
	err  error
	sent []domain.Content
	// inFlight runs while the request is outstanding.
	inFlight func()
}

func (s *fakeSender) SendMessage(_ context.Context, convID uuid.UUID, content domain.Content) (*domain.Message, error) {
	if s.inFlight != nil {
		s.inFlight()
	}
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, content)
	return &domain.Message{ID: uuid.New(), ConversationID: convID, Content: content, CreatedAt: start}, nil
}

type harness struct {
	self   domain.UserSummary
	sender *fakeSender
	inbox  *inbox.Projection
	ctrl   *Controller
}

func newHarness() *harness {
	self := peer("me")
	sender := &fakeSender{}
	projection := inbox.New(self.ID, clockwork.NewFakeClockAt(start))
	return &harness{
		self:   self,
		sender: sender,
		inbox:  projection,
		ctrl:   NewController(self.ID, sender, projection),
	}
}

func peer(name string) domain.UserSummary {
	return domain.UserSummary{ID: uuid.New(), Username: name, DisplayName: name}
}

func inbound(from uuid.UUID, convID uuid.UUID, text string) domain.Message {
	return domain.Message{ID: uuid.New(), ConversationID: convID, SenderID: from, Content: domain.Content{Text: text}, CreatedAt: start}
}

func TestSelectOpensUpToThreeWindows(t *testing.T) {
	h := newHarness()
	a, b, c, d := peer("a"), peer("b"), peer("c"), peer("d")

	assert.Equal(t, Opened, h.ctrl.Select(a))
	assert.Equal(t, Opened, h.ctrl.Select(b))
	assert.Equal(t, Opened, h.ctrl.Select(c))
	assert.Equal(t, Ignored, h.ctrl.Select(d))
	assert.Len(t, h.ctrl.Windows(), MaxWindows)

	_, ok := h.ctrl.Window(d.ID)
	assert.False(t, ok)

	require.True(t, h.ctrl.Close(b.ID))
	assert.Equal(t, Opened, h.ctrl.Select(d))
	windows := h.ctrl.Windows()
	require.Len(t, windows, MaxWindows)
	assert.Equal(t, d.ID, windows[2].Peer.ID)
}

func TestSelectExpandsMinimizedWindow(t *testing.T) {
	h := newHarness()
	a := peer("a")

	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.ToggleMinimize(a.ID))
	w, _ := h.ctrl.Window(a.ID)
	assert.True(t, w.Minimized)

	assert.Equal(t, Expanded, h.ctrl.Select(a))
	assert.Equal(t, AlreadyOpen, h.ctrl.Select(a))
	w, _ = h.ctrl.Window(a.ID)
	assert.False(t, w.Minimized)
}

func TestSelectMarksConversationRead(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.ReceiveInbound(a, inbound(a.ID, uuid.New(), "hello"))
	require.Equal(t, 1, h.inbox.UnreadCount())

	h.ctrl.Select(a)
	assert.Equal(t, 0, h.inbox.UnreadCount())
}

func TestCloseDiscardsWindowState(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.SetText(a.ID, "draft"))

	assert.True(t, h.ctrl.Close(a.ID))
	assert.False(t, h.ctrl.Close(a.ID))

	h.ctrl.Select(a)
	w, _ := h.ctrl.Window(a.ID)
	assert.Empty(t, w.Draft.Text)
	assert.Empty(t, w.History)
}

func TestSeedDeduplicatesAndOrders(t *testing.T) {
	h := newHarness()
	a := peer("a")
	convID := uuid.New()
	h.ctrl.Select(a)

	live := inbound(a.ID, convID, "live")
	live.CreatedAt = start.Add(time.Minute)
	h.ctrl.ReceiveInbound(a, live)

	older := inbound(a.ID, convID, "older")
	require.NoError(t, h.ctrl.Seed(a.ID, convID, []domain.Message{older, live}))

	w, _ := h.ctrl.Window(a.ID)
	assert.Equal(t, convID, w.ConversationID)
	require.Len(t, w.History, 2)
	assert.Equal(t, "older", w.History[0].Content.Text)
	assert.Equal(t, "live", w.History[1].Content.Text)

	assert.ErrorIs(t, h.ctrl.Seed(uuid.New(), convID, nil), ErrNoWindow)
}

func TestReceiveInboundWithoutWindowMarksUnread(t *testing.T) {
	h := newHarness()
	a := peer("a")

	assert.False(t, h.ctrl.ReceiveInbound(a, inbound(a.ID, uuid.New(), "ping")))
	rows := h.inbox.Rows()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Unread)
	assert.Equal(t, "ping", rows[0].Preview)
}

func TestReceiveInboundAppendsOnce(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	msg := inbound(a.ID, uuid.New(), "hi")

	assert.True(t, h.ctrl.ReceiveInbound(a, msg))
	assert.True(t, h.ctrl.ReceiveInbound(a, msg))

	w, _ := h.ctrl.Window(a.ID)
	assert.Len(t, w.History, 1)
	assert.Equal(t, msg.ConversationID, w.ConversationID)
	assert.Equal(t, 0, h.inbox.UnreadCount())
}

func TestSendClearsDraftOnSuccess(t *testing.T) {
	h := newHarness()
	a := peer("a")
	convID := uuid.New()
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.Seed(a.ID, convID, nil))
	require.NoError(t, h.ctrl.SetText(a.ID, "hello"))
	require.NoError(t, h.ctrl.AddImage(a.ID, "https://cdn/1.png"))

	msg, err := h.ctrl.Send(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, msg)

	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, "hello", h.sender.sent[0].Text)
	assert.Equal(t, []string{"https://cdn/1.png"}, h.sender.sent[0].Images())

	w, _ := h.ctrl.Window(a.ID)
	assert.Equal(t, Draft{}, w.Draft)
	require.Len(t, w.History, 1)
	assert.Equal(t, msg.ID, w.History[0].ID)
}

func TestSendKeepsEditsMadeWhileInFlight(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.Seed(a.ID, uuid.New(), nil))
	require.NoError(t, h.ctrl.SetText(a.ID, "look"))
	require.NoError(t, h.ctrl.AddImage(a.ID, "https://cdn/1.png"))
	h.sender.inFlight = func() {
		require.NoError(t, h.ctrl.AddImage(a.ID, "https://cdn/2.png"))
		require.NoError(t, h.ctrl.StartRecording(a.ID))
	}

	_, err := h.ctrl.Send(context.Background(), a.ID)
	require.NoError(t, err)

	w, _ := h.ctrl.Window(a.ID)
	assert.Empty(t, w.Draft.Text)
	assert.Equal(t, []string{"https://cdn/2.png"}, w.Draft.Images)
	assert.Equal(t, VoiceRecording, w.Draft.Voice)
}

func TestSendKeepsTextChangedWhileInFlight(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.Seed(a.ID, uuid.New(), nil))
	require.NoError(t, h.ctrl.SetText(a.ID, "one"))
	h.sender.inFlight = func() {
		require.NoError(t, h.ctrl.SetText(a.ID, "two"))
	}

	_, err := h.ctrl.Send(context.Background(), a.ID)
	require.NoError(t, err)

	require.Len(t, h.sender.sent, 1)
	assert.Equal(t, "one", h.sender.sent[0].Text)
	w, _ := h.ctrl.Window(a.ID)
	assert.Equal(t, "two", w.Draft.Text)
}

func TestSendKeepsDraftOnFailure(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.Seed(a.ID, uuid.New(), nil))
	require.NoError(t, h.ctrl.SetText(a.ID, "retry me"))
	h.sender.err = errors.New("network down")

	_, err := h.ctrl.Send(context.Background(), a.ID)
	require.Error(t, err)

	w, _ := h.ctrl.Window(a.ID)
	assert.Equal(t, "retry me", w.Draft.Text)
	assert.Empty(t, w.History)
}

func TestSendEmptyDraftIsNoop(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.SetText(a.ID, "   "))

	msg, err := h.ctrl.Send(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Nil(t, msg)
	assert.Empty(t, h.sender.sent)
}

func TestSendRequiresConversation(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.SetText(a.ID, "hi"))

	_, err := h.ctrl.Send(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNoConversation)

	_, err = h.ctrl.Send(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoWindow)
}

func TestVoiceNoteLifecycle(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.Seed(a.ID, uuid.New(), nil))

	assert.ErrorIs(t, h.ctrl.StopRecording(a.ID, "https://cdn/v.webm"), ErrNotRecording)
	assert.ErrorIs(t, h.ctrl.DiscardRecording(a.ID), ErrNoPendingClip)

	require.NoError(t, h.ctrl.StartRecording(a.ID))
	assert.ErrorIs(t, h.ctrl.StartRecording(a.ID), ErrAlreadyRecording)
	assert.ErrorIs(t, h.ctrl.SetText(a.ID, "typing"), ErrComposerLocked)
	_, err := h.ctrl.Send(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrComposerLocked)

	require.NoError(t, h.ctrl.StopRecording(a.ID, "https://cdn/v.webm"))
	w, _ := h.ctrl.Window(a.ID)
	assert.Equal(t, VoicePending, w.Draft.Voice)
	assert.True(t, w.Draft.TextLocked())
	assert.ErrorIs(t, h.ctrl.SetText(a.ID, "typing"), ErrComposerLocked)

	_, err = h.ctrl.Send(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, h.sender.sent, 1)
	url, ok := h.sender.sent[0].Audio()
	assert.True(t, ok)
	assert.Equal(t, "https://cdn/v.webm", url)

	w, _ = h.ctrl.Window(a.ID)
	assert.Equal(t, VoiceIdle, w.Draft.Voice)
	assert.NoError(t, h.ctrl.SetText(a.ID, "typing again"))
}

func TestDiscardRecordingUnlocksComposer(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)

	require.NoError(t, h.ctrl.StartRecording(a.ID))
	require.NoError(t, h.ctrl.DiscardRecording(a.ID))
	assert.NoError(t, h.ctrl.SetText(a.ID, "ok"))

	require.NoError(t, h.ctrl.StartRecording(a.ID))
	require.NoError(t, h.ctrl.StopRecording(a.ID, "https://cdn/v.webm"))
	require.NoError(t, h.ctrl.DiscardRecording(a.ID))
	w, _ := h.ctrl.Window(a.ID)
	assert.Empty(t, w.Draft.Clip)
	assert.Empty(t, w.Draft.Content().Attachments)
}

func TestRemoveImage(t *testing.T) {
	h := newHarness()
	a := peer("a")
	h.ctrl.Select(a)
	require.NoError(t, h.ctrl.AddImage(a.ID, "https://cdn/1.png"))
	require.NoError(t, h.ctrl.AddImage(a.ID, "https://cdn/2.png"))

	require.NoError(t, h.ctrl.RemoveImage(a.ID, 0))
	assert.ErrorIs(t, h.ctrl.RemoveImage(a.ID, 5), ErrNoImage)

	w, _ := h.ctrl.Window(a.ID)
	assert.Equal(t, []string{"https://cdn/2.png"}, w.Draft.Images)
}
