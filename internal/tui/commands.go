package tui

import (
	"context"
	"encoding/json"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/session"
	"github.com/vedran77/chronofeed/internal/transport/ws"
)

const (
	requestTimeout = 10 * time.Second
	historyPage    = 50
)

// --- Messages ---

type conversationsLoadedMsg struct {
	convs []domain.Conversation
	err   error
}

type historyLoadedMsg struct {
	peerID uuid.UUID
	convID uuid.UUID
	msgs   []domain.Message
	err    error
}

type sentMsg struct {
	peerID uuid.UUID
	msg    *domain.Message
	err    error
}

type streamEventMsg struct {
	evt *ws.Event
}

type streamErrMsg struct {
	err error
}

type streamConnectedMsg struct {
	stream Stream
}

type tickMsg time.Time

// --- Commands ---

func loadConversations(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		convs, err := b.Conversations(ctx)
		return conversationsLoadedMsg{convs: convs, err: err}
	}
}

// loadHistory resolves the conversation with peer and fetches its latest page.
func loadHistory(b Backend, peerID uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		conv, err := b.OpenConversation(ctx, peerID)
		if err != nil {
			return historyLoadedMsg{peerID: peerID, err: err}
		}
		page, err := b.Messages(ctx, conv.ID, nil, historyPage)
		if err != nil {
			return historyLoadedMsg{peerID: peerID, convID: conv.ID, err: err}
		}
		return historyLoadedMsg{peerID: peerID, convID: conv.ID, msgs: page.Messages}
	}
}

func sendDraft(ctrl *session.Controller, peerID uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		msg, err := ctrl.Send(ctx, peerID)
		return sentMsg{peerID: peerID, msg: msg, err: err}
	}
}

func listen(s Stream) tea.Cmd {
	return func() tea.Msg {
		evt, err := s.Next(context.Background())
		if err != nil {
			return streamErrMsg{err: err}
		}
		return streamEventMsg{evt: evt}
	}
}

func redial(dial DialFunc) tea.Cmd {
	return func() tea.Msg {
		s, err := dial(context.Background())
		if err != nil {
			return streamErrMsg{err: err}
		}
		return streamConnectedMsg{stream: s}
	}
}

func tick() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func decodePayload[T any](evt *ws.Event) (T, error) {
	var payload T
	err := json.Unmarshal(evt.Payload, &payload)
	return payload, err
}
