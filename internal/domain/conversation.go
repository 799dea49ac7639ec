package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID            uuid.UUID   `json:"id"`
	Participants  []uuid.UUID `json:"participants"`
	Name          string      `json:"name"`
	AvatarURL     *string     `json:"avatar,omitempty"`
	LastMessage   *string     `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time  `json:"lastMessageTimestamp,omitempty"`
	PinnedBy      []uuid.UUID `json:"pinnedBy"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return containsID(c.Participants, userID)
}

func (c *Conversation) IsPinnedBy(userID uuid.UUID) bool {
	return containsID(c.PinnedBy, userID)
}

// TogglePin flips userID's membership in the pinning set and reports
// whether the conversation is pinned for that user afterwards.
func (c *Conversation) TogglePin(userID uuid.UUID) bool {
	for i, id := range c.PinnedBy {
		if id == userID {
			c.PinnedBy = append(c.PinnedBy[:i:i], c.PinnedBy[i+1:]...)
			return false
		}
	}
	c.PinnedBy = append(c.PinnedBy, userID)
	return true
}

// UniqueIDs drops duplicates and nil ids, keeping first-seen order.
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SameParticipants reports whether a and b hold the same set of ids.
func SameParticipants(a, b []uuid.UUID) bool {
	a, b = UniqueIDs(a), UniqueIDs(b)
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !containsID(b, id) {
			return false
		}
	}
	return true
}

func containsID(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
