package session

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

// MaxWindows is the number of chat windows that can be open at once.
const MaxWindows = 3

var (
	ErrNoWindow         = errors.New("no chat window open for this user")
	ErrNoConversation   = errors.New("conversation history has not been loaded yet")
	ErrComposerLocked   = errors.New("text input is disabled while a voice note is recording or pending")
	ErrAlreadyRecording = errors.New("a voice note is already recording or pending")
	ErrNotRecording     = errors.New("no voice note is recording")
	ErrNoPendingClip    = errors.New("no voice note to discard")
	ErrNoImage          = errors.New("no image at that position")
)

// Outcome reports what Select did.
type Outcome int

const (
	Ignored Outcome = iota
	Opened
	Expanded
	AlreadyOpen
)

func (o Outcome) String() string {
	switch o {
	case Opened:
		return "opened"
	case Expanded:
		return "expanded"
	case AlreadyOpen:
		return "already_open"
	}
	return "ignored"
}

// Sender delivers a composed message. The API client implements it.
type Sender interface {
	SendMessage(ctx context.Context, conversationID uuid.UUID, content domain.Content) (*domain.Message, error)
}

// Inbox is the part of the conversation list the controller keeps in sync.
type Inbox interface {
	Update(peer domain.UserSummary, conversationID uuid.UUID, msg domain.Message)
	MarkUnread(peer domain.UserSummary, conversationID uuid.UUID, msg domain.Message)
	MarkRead(peerID uuid.UUID)
}

// Controller owns the open chat windows of a signed-in user.
type Controller struct {
	mu      sync.Mutex
	self    uuid.UUID
	sender  Sender
	inbox   Inbox
	windows []*Window
}

func NewController(self uuid.UUID, sender Sender, inbox Inbox) *Controller {
	return &Controller{self: self, sender: sender, inbox: inbox}
}

// Select opens or expands the window for peer. When all windows are taken the
// selection is ignored.
func (c *Controller) Select(peer domain.UserSummary) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w := c.find(peer.ID); w != nil {
		c.inbox.MarkRead(peer.ID)
		if w.Minimized {
			w.Minimized = false
			return Expanded
		}
		return AlreadyOpen
	}
	if len(c.windows) >= MaxWindows {
		return Ignored
	}
	c.windows = append(c.windows, &Window{Peer: peer})
	c.inbox.MarkRead(peer.ID)
	return Opened
}

// Close removes the window and discards its history and draft.
func (c *Controller) Close(peerID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.windows {
		if w.Peer.ID == peerID {
			c.windows = append(c.windows[:i], c.windows[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Controller) ToggleMinimize(peerID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.find(peerID)
	if w == nil {
		return ErrNoWindow
	}
	w.Minimized = !w.Minimized
	if !w.Minimized {
		c.inbox.MarkRead(peerID)
	}
	return nil
}

// Windows returns snapshots of the open windows in the order they were opened.
func (c *Controller) Windows() []Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Window, 0, len(c.windows))
	for _, w := range c.windows {
		out = append(out, w.snapshot())
	}
	return out
}

func (c *Controller) Window(peerID uuid.UUID) (Window, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w := c.find(peerID); w != nil {
		return w.snapshot(), true
	}
	return Window{}, false
}

// Seed merges a loaded history page into the window and binds it to the
// conversation.
func (c *Controller) Seed(peerID, conversationID uuid.UUID, history []domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.find(peerID)
	if w == nil {
		return ErrNoWindow
	}
	w.ConversationID = conversationID
	for _, msg := range history {
		w.append(msg)
	}
	sort.SliceStable(w.History, func(i, j int) bool {
		return w.History[i].CreatedAt.Before(w.History[j].CreatedAt)
	})
	return nil
}

// ReceiveInbound handles a message pushed by the server. It reports whether
// the message landed in an open window.
func (c *Controller) ReceiveInbound(from domain.UserSummary, msg domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.find(from.ID)
	if w == nil {
		c.inbox.MarkUnread(from, msg.ConversationID, msg)
		return false
	}
	if w.ConversationID == uuid.Nil && msg.ConversationID != uuid.Nil {
		w.ConversationID = msg.ConversationID
	}
	w.append(msg)
	if w.Minimized {
		c.inbox.MarkUnread(from, msg.ConversationID, msg)
	} else {
		c.inbox.Update(from, msg.ConversationID, msg)
	}
	return true
}

func (c *Controller) SetText(peerID uuid.UUID, text string) error {
	return c.compose(peerID, func(d *Draft) error {
		if d.Voice != VoiceIdle {
			return ErrComposerLocked
		}
		d.Text = text
		return nil
	})
}

func (c *Controller) AddImage(peerID uuid.UUID, url string) error {
	return c.compose(peerID, func(d *Draft) error {
		if url == "" {
			return domain.ErrAttachmentEmptyURL
		}
		d.Images = append(d.Images, url)
		return nil
	})
}

func (c *Controller) RemoveImage(peerID uuid.UUID, i int) error {
	return c.compose(peerID, func(d *Draft) error {
		if i < 0 || i >= len(d.Images) {
			return ErrNoImage
		}
		d.Images = append(d.Images[:i], d.Images[i+1:]...)
		return nil
	})
}

func (c *Controller) StartRecording(peerID uuid.UUID) error {
	return c.compose(peerID, func(d *Draft) error {
		if d.Voice != VoiceIdle {
			return ErrAlreadyRecording
		}
		d.Voice = VoiceRecording
		return nil
	})
}

// StopRecording finishes the recording and holds the uploaded clip until the
// draft is sent or the clip is discarded.
func (c *Controller) StopRecording(peerID uuid.UUID, audioURL string) error {
	return c.compose(peerID, func(d *Draft) error {
		if d.Voice != VoiceRecording {
			return ErrNotRecording
		}
		if audioURL == "" {
			return domain.ErrAttachmentEmptyURL
		}
		d.Voice = VoicePending
		d.Clip = audioURL
		return nil
	})
}

func (c *Controller) DiscardRecording(peerID uuid.UUID) error {
	return c.compose(peerID, func(d *Draft) error {
		if d.Voice == VoiceIdle {
			return ErrNoPendingClip
		}
		d.Voice = VoiceIdle
		d.Clip = ""
		return nil
	})
}

// Send submits the draft of peer's window. An empty draft is a no-op. The
// sent parts of the draft are cleared only after the server accepted the
// message; edits made while the request was in flight survive.
func (c *Controller) Send(ctx context.Context, peerID uuid.UUID) (*domain.Message, error) {
	c.mu.Lock()
	w := c.find(peerID)
	if w == nil {
		c.mu.Unlock()
		return nil, ErrNoWindow
	}
	if w.Draft.Voice == VoiceRecording {
		c.mu.Unlock()
		return nil, ErrComposerLocked
	}
	content := w.Draft.Content()
	if content.IsEmpty() {
		c.mu.Unlock()
		return nil, nil
	}
	if w.ConversationID == uuid.Nil {
		c.mu.Unlock()
		return nil, ErrNoConversation
	}
	convID := w.ConversationID
	sent := w.Draft
	sent.Images = slices.Clone(w.Draft.Images)
	c.mu.Unlock()

	msg, err := c.sender.SendMessage(ctx, convID, content)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The window may have been closed while the request was in flight.
	if w = c.find(peerID); w != nil {
		w.Draft.consume(sent)
		w.append(*msg)
		c.inbox.Update(w.Peer, convID, *msg)
	}
	return msg, nil
}

func (c *Controller) compose(peerID uuid.UUID, fn func(*Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.find(peerID)
	if w == nil {
		return ErrNoWindow
	}
	return fn(&w.Draft)
}

func (c *Controller) find(peerID uuid.UUID) *Window {
	for _, w := range c.windows {
		if w.Peer.ID == peerID {
			return w
		}
	}
	return nil
}
