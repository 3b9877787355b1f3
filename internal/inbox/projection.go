package inbox

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/vedran77/chronofeed/internal/domain"
)

// PreviewLength is the rune budget for a row's last-message preview.
const PreviewLength = 40

// Row is one rendered line of the conversation list.
type Row struct {
	Peer           domain.UserSummary
	ConversationID uuid.UUID
	Preview        string
	Timestamp      string
	Unread         bool
}

type entry struct {
	peer   domain.UserSummary
	convID uuid.UUID
	last   *domain.Message
	at     time.Time
	unread bool
}

// Projection keeps the conversation list of the signed-in user ordered by
// recency and tracks which conversations have unseen inbound messages.
type Projection struct {
	mu      sync.Mutex
	self    uuid.UUID
	clock   clockwork.Clock
	entries []*entry
}

func New(self uuid.UUID, clock clockwork.Clock) *Projection {
	return &Projection{self: self, clock: clock}
}

// Load replaces the rows with a fresh conversation list. Unread flags of
// conversations already known are kept. A conversation seen for the first
// time is unread when its last message came from the peer.
func (p *Projection) Load(convs []domain.Conversation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := make(map[uuid.UUID]bool, len(p.entries))
	for _, e := range p.entries {
		prev[e.peer.ID] = e.unread
	}

	entries := make([]*entry, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		peer, ok := conv.Peer(p.self)
		if !ok {
			continue
		}
		e := &entry{peer: peer, convID: conv.ID, last: conv.LastMessage, at: conv.UpdatedAt}
		if conv.LastMessage != nil {
			e.at = conv.LastMessage.CreatedAt
		}
		if unread, known := prev[peer.ID]; known {
			e.unread = unread
		} else {
			e.unread = conv.LastMessage != nil && conv.LastMessage.SenderID != p.self
		}
		entries = append(entries, e)
	}
	p.entries = entries
	p.sort()
}

// Update records msg as the latest message with peer without touching the
// unread flag.
func (p *Projection) Update(peer domain.UserSummary, convID uuid.UUID, msg domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.upsert(peer, convID, msg)
	p.sort()
}

// MarkUnread records an inbound message for a conversation that has no open
// window and moves it to the top.
func (p *Projection) MarkUnread(peer domain.UserSummary, convID uuid.UUID, msg domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.upsert(peer, convID, msg)
	if msg.SenderID != p.self {
		e.unread = true
	}
	p.sort()
}

func (p *Projection) MarkRead(peerID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.find(peerID); e != nil {
		e.unread = false
	}
}

func (p *Projection) UnreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.entries {
		if e.unread {
			n++
		}
	}
	return n
}

// Rows renders the list, newest first, with timestamps relative to the clock.
func (p *Projection) Rows() []Row {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	rows := make([]Row, 0, len(p.entries))
	for _, e := range p.entries {
		row := Row{
			Peer:           e.peer,
			ConversationID: e.convID,
			Unread:         e.unread,
		}
		if e.last != nil {
			row.Preview = p.preview(e.last)
			row.Timestamp = RelativeTime(e.at, now)
		}
		rows = append(rows, row)
	}
	return rows
}

// Peer looks up a known counterpart by id.
func (p *Projection) Peer(peerID uuid.UUID) (domain.UserSummary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.find(peerID); e != nil {
		return e.peer, true
	}
	return domain.UserSummary{}, false
}

func (p *Projection) preview(msg *domain.Message) string {
	if msg.SenderID == p.self {
		return "You: " + msg.Content.Preview(PreviewLength)
	}
	return msg.Content.Preview(PreviewLength)
}

func (p *Projection) upsert(peer domain.UserSummary, convID uuid.UUID, msg domain.Message) *entry {
	e := p.find(peer.ID)
	if e == nil {
		e = &entry{peer: peer}
		p.entries = append(p.entries, e)
	} else if peer.Username != "" {
		e.peer = peer
	}
	if convID != uuid.Nil {
		e.convID = convID
	}
	e.last = &msg
	e.at = msg.CreatedAt
	return e
}

func (p *Projection) find(peerID uuid.UUID) *entry {
	for _, e := range p.entries {
		if e.peer.ID == peerID {
			return e
		}
	}
	return nil
}

func (p *Projection) sort() {
	sort.SliceStable(p.entries, func(i, j int) bool {
		return p.entries[i].at.After(p.entries[j].at)
	})
}

// RelativeTime formats t for the conversation list.
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
