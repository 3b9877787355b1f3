package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentAudio AttachmentKind = "audio"
)

func (k AttachmentKind) Valid() bool {
	switch k {
	case AttachmentImage, AttachmentAudio:
		return true
	}
	return false
}

// Attachment references an uploaded file. URLs are opaque to the server.
type Attachment struct {
	Kind AttachmentKind `json:"kind"`
	URL  string         `json:"url"`
}

// ContentKind classifies a message body for rendering.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentAudio ContentKind = "audio"
	ContentMixed ContentKind = "mixed"
)

var (
	ErrContentEmpty       = errors.New("message must have text or at least one attachment")
	ErrTooManyAudioClips  = errors.New("message can carry at most one voice clip")
	ErrAttachmentKind     = errors.New("unknown attachment kind")
	ErrAttachmentEmptyURL = errors.New("attachment url is required")
)

type Content struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

func (c Content) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.Attachments) == 0
}

// Validate enforces the message content invariant.
func (c Content) Validate() error {
	if c.IsEmpty() {
		return ErrContentEmpty
	}
	audio := 0
	for _, a := range c.Attachments {
		if !a.Kind.Valid() {
			return ErrAttachmentKind
		}
		if strings.TrimSpace(a.URL) == "" {
			return ErrAttachmentEmptyURL
		}
		if a.Kind == AttachmentAudio {
			audio++
		}
	}
	if audio > 1 {
		return ErrTooManyAudioClips
	}
	return nil
}

func (c Content) Images() []string {
	var urls []string
	for _, a := range c.Attachments {
		if a.Kind == AttachmentImage {
			urls = append(urls, a.URL)
		}
	}
	return urls
}

func (c Content) Audio() (string, bool) {
	for _, a := range c.Attachments {
		if a.Kind == AttachmentAudio {
			return a.URL, true
		}
	}
	return "", false
}

func (c Content) Kind() ContentKind {
	hasText := strings.TrimSpace(c.Text) != ""
	images := len(c.Images())
	_, hasAudio := c.Audio()

	switch {
	case hasText && images == 0 && !hasAudio:
		return ContentText
	case !hasText && images > 0 && !hasAudio:
		return ContentImage
	case !hasText && images == 0 && hasAudio:
		return ContentAudio
	}
	return ContentMixed
}

// Preview renders a one-line summary truncated to max runes.
func (c Content) Preview(max int) string {
	text := strings.Join(strings.Fields(c.Text), " ")
	if text == "" {
		if len(c.Images()) > 0 {
			return "📷 Photo"
		}
		if _, ok := c.Audio(); ok {
			return "🎤 Voice message"
		}
		return ""
	}
	if max > 0 && utf8.RuneCountInString(text) > max {
		runes := []rune(text)
		return string(runes[:max-1]) + "…"
	}
	return text
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        Content   `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	// Joined fields
	SenderUsername    string  `json:"sender_username,omitempty"`
	SenderDisplayName string  `json:"sender_display_name,omitempty"`
	SenderAvatarURL   *string `json:"sender_avatar_url,omitempty"`
}
