package session

import (
	"slices"

	"github.com/google/uuid"
	"github.com/vedran77/chronofeed/internal/domain"
)

// VoiceState is the voice-note recorder state of one window.
type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceRecording
	VoicePending
)

// Draft is the unsent composition of a window.
type Draft struct {
	Text   string
	Images []string
	Voice  VoiceState
	Clip   string
}

// Content assembles the draft into a message body. A clip still recording is
// not part of it.
func (d Draft) Content() domain.Content {
	var content domain.Content
	content.Text = d.Text
	for _, url := range d.Images {
		content.Attachments = append(content.Attachments, domain.Attachment{Kind: domain.AttachmentImage, URL: url})
	}
	if d.Voice == VoicePending && d.Clip != "" {
		content.Attachments = append(content.Attachments, domain.Attachment{Kind: domain.AttachmentAudio, URL: d.Clip})
	}
	return content
}

// TextLocked reports whether the text field is disabled.
func (d Draft) TextLocked() bool {
	return d.Voice != VoiceIdle
}

// consume removes what was sent from d. Anything composed after the send
// started is kept.
func (d *Draft) consume(sent Draft) {
	if d.Text == sent.Text {
		d.Text = ""
	}
	for _, url := range sent.Images {
		if i := slices.Index(d.Images, url); i >= 0 {
			d.Images = slices.Delete(d.Images, i, i+1)
		}
	}
	if len(d.Images) == 0 {
		d.Images = nil
	}
	if sent.Voice == VoicePending && d.Voice == VoicePending && d.Clip == sent.Clip {
		d.Voice = VoiceIdle
		d.Clip = ""
	}
}

type Window struct {
	Peer           domain.UserSummary
	ConversationID uuid.UUID
	Minimized      bool
	History        []domain.Message
	Draft          Draft
}

// append adds msg unless a message with the same id is already present.
// Relayed messages without an id are always appended.
func (w *Window) append(msg domain.Message) {
	if msg.ID != uuid.Nil {
		for _, m := range w.History {
			if m.ID == msg.ID {
				return
			}
		}
	}
	w.History = append(w.History, msg)
}

func (w *Window) snapshot() Window {
	cp := *w
	cp.History = append([]domain.Message(nil), w.History...)
	cp.Draft.Images = append([]string(nil), w.Draft.Images...)
	return cp
}
