package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Conversation is a one-to-one chat between two users. Participants are
// stored in canonical order (User1ID < User2ID) so a pair maps to one row.
type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	User1ID       uuid.UUID  `json:"-"`
	User2ID       uuid.UUID  `json:"-"`
	LastMessageID *uuid.UUID `json:"last_message_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	// Joined fields for frontend
	Participants []UserSummary `json:"participants"`
	LastMessage  *Message      `json:"last_message,omitempty"`
}

// CanonicalPair orders two user ids the same way regardless of argument order.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Counterpart returns the participant that is not userID.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Participant returns the resolved summary for id, if it was joined.
func (c *Conversation) Participant(id uuid.UUID) (UserSummary, bool) {
	for _, p := range c.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return UserSummary{}, false
}

// Peer resolves the other participant from the joined summaries. Clients only
// see Participants since the raw pair is not serialized.
func (c *Conversation) Peer(self uuid.UUID) (UserSummary, bool) {
	for _, p := range c.Participants {
		if p.ID != self {
			return p, true
		}
	}
	return UserSummary{}, false
}
