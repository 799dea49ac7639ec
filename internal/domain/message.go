package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// Content is the typed payload of a message. For images Data holds the URL.
type Content struct {
	Data string      `json:"data"`
	Type ContentType `json:"type"`
}

func (c Content) Valid() bool {
	if c.Data == "" {
		return false
	}
	return c.Type == ContentText || c.Type == ContentImage
}

// UnmarshalJSON accepts either {"data","type"} or a bare string, which is
// read as text content.
func (c *Content) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Content{Data: s, Type: ContentText}
		return nil
	}
	type plain Content
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = Content(p)
	return nil
}

// Preview is the denormalized form stored on the conversation row.
func (c Content) Preview() string {
	b, _ := json.Marshal(struct {
		Data string      `json:"data"`
		Type ContentType `json:"type"`
	}{c.Data, c.Type})
	return string(b)
}

type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionHeart ReactionType = "heart"
	ReactionLaugh ReactionType = "laugh"
)

func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionHeart, ReactionLaugh:
		return true
	}
	return false
}

type Reaction struct {
	Type   ReactionType `json:"type"`
	Sender uuid.UUID    `json:"sender"`
}

type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	Content        Content    `json:"content"`
	Reactions      []Reaction `json:"reactions"`
	SenderID       uuid.UUID  `json:"senderId"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	// Hydrated, not stored
	Sender *Profile `json:"sender,omitempty"`
}

// ToggleReaction applies a reaction from sender and returns the new list.
// The same type from the same sender removes it, a different type replaces
// it in place, otherwise it is appended. The input slice is not modified.
func ToggleReaction(reactions []Reaction, sender uuid.UUID, t ReactionType) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	found := false
	for _, r := range reactions {
		if r.Sender != sender {
			out = append(out, r)
			continue
		}
		if found {
			// collapse stray duplicates left by older rows
			continue
		}
		found = true
		if r.Type != t {
			out = append(out, Reaction{Type: t, Sender: sender})
		}
	}
	if !found {
		out = append(out, Reaction{Type: t, Sender: sender})
	}
	return out
}
