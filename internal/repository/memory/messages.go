package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

// MessageStore keeps each conversation's messages in insertion order. It is
// tied to the ConversationStore holding those conversations so that previews
// and deletes stay consistent across the two.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]*domain.Message
	byConv   map[uuid.UUID][]uuid.UUID
	convs    *ConversationStore
}

func NewMessageStore(convs *ConversationStore) *MessageStore {
	s := &MessageStore{
		messages: make(map[uuid.UUID]*domain.Message),
		byConv:   make(map[uuid.UUID][]uuid.UUID),
		convs:    convs,
	}
	convs.messages = s
	return s
}

// CreateWithPreview holds the message lock across the preview update so a
// message is never stored without its preview, or the reverse.
func (s *MessageStore) CreateWithPreview(_ context.Context, msg *domain.Message, preview string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; ok {
		return repository.ErrDuplicate
	}
	if !s.convs.setLastMessage(msg.ConversationID, preview, msg.CreatedAt) {
		return repository.ErrNotFound
	}
	s.messages[msg.ID] = cloneMessage(msg)
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], msg.ID)
	return nil
}

func (s *MessageStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.messages[id]; ok {
		return cloneMessage(m), nil
	}
	return nil, nil
}

func (s *MessageStore) ListByConversation(_ context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byConv[conversationID]
	end := len(ids)
	if before != nil {
		end = -1
		for i, id := range ids {
			if id == *before {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, nil
		}
	}
	start := 0
	if limit > 0 && end-limit > 0 {
		start = end - limit
	}

	out := make([]domain.Message, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, *cloneMessage(s.messages[id]))
	}
	return out, nil
}

func (s *MessageStore) UpdateContent(_ context.Context, id uuid.UUID, content domain.Content, at time.Time) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	m.Content = content
	m.UpdatedAt = at
	return cloneMessage(m), nil
}

func (s *MessageStore) ToggleReaction(_ context.Context, id, sender uuid.UUID, t domain.ReactionType, at time.Time) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	m.Reactions = domain.ToggleReaction(m.Reactions, sender, t)
	m.UpdatedAt = at
	return cloneMessage(m), nil
}

func (s *MessageStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return false, nil
	}
	delete(s.messages, id)
	ids := s.byConv[m.ConversationID]
	for i, mid := range ids {
		if mid == id {
			s.byConv[m.ConversationID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MessageStore) dropConversation(conversationID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.byConv[conversationID] {
		delete(s.messages, id)
	}
	delete(s.byConv, conversationID)
}

func cloneMessage(m *domain.Message) *domain.Message {
	out := *m
	out.Reactions = append([]domain.Reaction{}, m.Reactions...)
	out.Sender = nil
	return &out
}

var _ repository.MessageRepository = (*MessageStore)(nil)
