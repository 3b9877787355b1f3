package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/inbox"
	"github.com/vedran77/chronofeed/internal/service"
	"github.com/vedran77/chronofeed/internal/session"
	"github.com/vedran77/chronofeed/internal/transport/ws"
)

// Backend is the REST surface the chat screen reads from.
type Backend interface {
	Conversations(ctx context.Context) ([]domain.Conversation, error)
	OpenConversation(ctx context.Context, counterpartID uuid.UUID) (*domain.Conversation, error)
	Messages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) (*service.MessageListResponse, error)
}

// Stream yields realtime events pushed by the server.
type Stream interface {
	Next(ctx context.Context) (*ws.Event, error)
}

type DialFunc func(ctx context.Context) (Stream, error)

type pane int

const (
	paneSidebar pane = iota
	paneWindow
)

const maxReconnects = 5

type Model struct {
	self    domain.User
	backend Backend
	stream  Stream
	dial    DialFunc
	inbox   *inbox.Projection
	ctrl    *session.Controller

	// UI layout
	width        int
	height       int
	sidebarWidth int
	focusedPane  pane

	// Sidebar
	cursor int

	// Windows
	focusedPeer uuid.UUID
	input       textinput.Model
	history     viewport.Model

	notifications  int
	reconnectCount int
	status         string
}

type Options struct {
	Self    domain.User
	Backend Backend
	Stream  Stream
	Dial    DialFunc
	Inbox   *inbox.Projection
	Session *session.Controller
}

func New(opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Type a message... (/help for commands)"
	input.CharLimit = 4000
	input.Width = 50

	return Model{
		self:    opts.Self,
		backend: opts.Backend,
		stream:  opts.Stream,
		dial:    opts.Dial,
		inbox:   opts.Inbox,
		ctrl:    opts.Session,
		input:   input,
		history: viewport.New(60, 10),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{loadConversations(m.backend), tick(), textinput.Blink}
	if m.stream != nil {
		cmds = append(cmds, listen(m.stream))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sidebarWidth = max(m.width/3, 28)
		m.input.Width = max(m.width-m.sidebarWidth-8, 10)
		m.history.Width = max(m.width-m.sidebarWidth-6, 10)
		m.history.Height = max(m.height-10, 3)
		m.refreshHistory()

	case conversationsLoadedMsg:
		if msg.err != nil {
			m.status = "could not load conversations: " + msg.err.Error()
			return m, nil
		}
		m.inbox.Load(msg.convs)

	case historyLoadedMsg:
		if msg.err != nil {
			m.status = "could not load history: " + msg.err.Error()
			return m, nil
		}
		if err := m.ctrl.Seed(msg.peerID, msg.convID, msg.msgs); err != nil {
			// The window was closed before the page arrived.
			return m, nil
		}
		m.refreshHistory()

	case sentMsg:
		if msg.err != nil {
			m.status = "send failed, draft kept: " + msg.err.Error()
			slog.Warn("send failed", "peer", msg.peerID, "error", msg.err)
			return m, nil
		}
		m.status = ""
		// Text typed while the request was in flight stays in the input.
		if msg.peerID == m.focusedPeer && msg.msg != nil &&
			strings.TrimSpace(m.input.Value()) == msg.msg.Content.Text {
			m.input.SetValue("")
		}
		m.refreshHistory()

	case streamEventMsg:
		m.reconnectCount = 0
		m.handleEvent(msg.evt)
		m.refreshHistory()
		return m, listen(m.stream)

	case streamConnectedMsg:
		m.stream = msg.stream
		m.status = ""
		return m, tea.Batch(listen(m.stream), loadConversations(m.backend))

	case streamErrMsg:
		slog.Warn("stream error", "error", msg.err, "attempt", m.reconnectCount)
		if m.dial == nil || m.reconnectCount >= maxReconnects {
			m.status = "disconnected: " + msg.err.Error()
			return m, nil
		}
		m.reconnectCount++
		m.status = fmt.Sprintf("⟳ Reconnecting (%d/%d)...", m.reconnectCount, maxReconnects)
		return m, redial(m.dial)

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.cycleFocus()
		cmd := m.focusInput()
		return m, cmd
	}

	if m.focusedPane == paneSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleWindowKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.inbox.Rows()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(rows) {
			return m, nil
		}
		peer := rows[m.cursor].Peer
		switch m.ctrl.Select(peer) {
		case session.Ignored:
			m.status = fmt.Sprintf("close a window first (max %d open)", session.MaxWindows)
			return m, nil
		case session.Opened:
			m.focus(peer.ID)
			cmd := m.focusInput()
			return m, tea.Batch(loadHistory(m.backend, peer.ID), cmd)
		default:
			m.focus(peer.ID)
			cmd := m.focusInput()
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleWindowKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focusedPane = paneSidebar
		m.input.Blur()
		return m, nil
	case "ctrl+w":
		m.ctrl.Close(m.focusedPeer)
		m.input.SetValue("")
		m.focusNext()
		cmd := m.focusInput()
		return m, cmd
	case "ctrl+n":
		if err := m.ctrl.ToggleMinimize(m.focusedPeer); err != nil {
			m.status = err.Error()
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs a slash command or sends the draft of the focused window.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	peerID := m.focusedPeer

	if strings.HasPrefix(line, "/") {
		m.status = m.runCommand(peerID, line)
		m.input.SetValue("")
		return m, nil
	}

	if line != "" {
		if err := m.ctrl.SetText(peerID, line); err != nil {
			if errors.Is(err, session.ErrComposerLocked) {
				m.status = "voice note pending: press enter on an empty line to send it or /discard"
			} else {
				m.status = err.Error()
			}
			return m, nil
		}
	}
	m.status = "sending..."
	return m, sendDraft(m.ctrl, peerID)
}

func (m *Model) runCommand(peerID uuid.UUID, line string) string {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch name {
	case "/image":
		err = m.ctrl.AddImage(peerID, arg)
	case "/unimage":
		var i int
		if _, scanErr := fmt.Sscanf(arg, "%d", &i); scanErr != nil {
			return "usage: /unimage <n>"
		}
		err = m.ctrl.RemoveImage(peerID, i-1)
	case "/record":
		err = m.ctrl.StartRecording(peerID)
	case "/stop":
		err = m.ctrl.StopRecording(peerID, arg)
	case "/discard":
		err = m.ctrl.DiscardRecording(peerID)
	case "/help":
		return "/image <url>  /unimage <n>  /record  /stop <clip url>  /discard  ctrl+n minimize  ctrl+w close"
	default:
		return "unknown command " + name
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func (m *Model) handleEvent(evt *ws.Event) {
	switch evt.Type {
	case ws.EventTypeReceiveMessage:
		payload, err := decodePayload[ws.ReceiveMessagePayload](evt)
		if err != nil {
			slog.Warn("bad receive_message payload", "error", err)
			return
		}
		from, ok := m.inbox.Peer(payload.SenderID)
		if !ok {
			from = domain.UserSummary{ID: payload.SenderID, Username: payload.SenderUsername, DisplayName: payload.SenderDisplayName}
		}
		m.ctrl.ReceiveInbound(from, payload.Message())

	case ws.EventTypeNotification:
		m.notifications++

	case ws.EventTypeError:
		payload, err := decodePayload[ws.ErrorPayload](evt)
		if err == nil {
			m.status = payload.Code + ": " + payload.Message
		}
	}
}

func (m *Model) cycleFocus() {
	if m.focusedPane == paneSidebar {
		m.focusNext()
		return
	}
	windows := m.ctrl.Windows()
	for i, w := range windows {
		if w.Peer.ID == m.focusedPeer {
			if i+1 < len(windows) {
				m.focus(windows[i+1].Peer.ID)
				return
			}
			break
		}
	}
	m.focusedPane = paneSidebar
	m.input.Blur()
}

// focusNext moves focus to the first open window, or the sidebar if none.
func (m *Model) focusNext() {
	windows := m.ctrl.Windows()
	if len(windows) == 0 {
		m.focusedPeer = uuid.Nil
		m.focusedPane = paneSidebar
		m.input.Blur()
		return
	}
	m.focus(windows[0].Peer.ID)
}

func (m *Model) focus(peerID uuid.UUID) {
	m.focusedPeer = peerID
	m.focusedPane = paneWindow
	m.input.SetValue("")
	if w, ok := m.ctrl.Window(peerID); ok && !w.Draft.TextLocked() {
		m.input.SetValue(w.Draft.Text)
	}
	m.refreshHistory()
}

func (m *Model) focusInput() tea.Cmd {
	if m.focusedPane != paneWindow {
		return nil
	}
	return m.input.Focus()
}

func (m *Model) refreshHistory() {
	w, ok := m.ctrl.Window(m.focusedPeer)
	if !ok {
		m.history.SetContent("")
		return
	}
	m.history.SetContent(m.renderHistory(w))
	m.history.GotoBottom()
}
