package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*domain.Conversation
	userIndex     map[uuid.UUID][]uuid.UUID // userID -> conversation ids

	// set by NewMessageStore; Delete cascades into it
	messages *MessageStore
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[uuid.UUID]*domain.Conversation),
		userIndex:     make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *ConversationStore) Create(_ context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conv.ID]; ok {
		return repository.ErrDuplicate
	}
	c := cloneConversation(conv)
	c.Participants = domain.UniqueIDs(c.Participants)
	s.conversations[c.ID] = c
	for _, id := range c.Participants {
		s.userIndex[id] = append(s.userIndex[id], c.ID)
	}
	return nil
}

func (s *ConversationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.conversations[id]; ok {
		return cloneConversation(c), nil
	}
	return nil, nil
}

func (s *ConversationStore) GetParticipants(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return append([]uuid.UUID(nil), c.Participants...), nil
}

func (s *ConversationStore) FindByParticipants(_ context.Context, participants []uuid.UUID) (*domain.Conversation, error) {
	ids := domain.UniqueIDs(participants)
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, convID := range s.userIndex[ids[0]] {
		c := s.conversations[convID]
		if domain.SameParticipants(c.Participants, ids) {
			return cloneConversation(c), nil
		}
	}
	return nil, nil
}

func (s *ConversationStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	s.mu.RLock()
	out := make([]domain.Conversation, 0, len(s.userIndex[userID]))
	for _, convID := range s.userIndex[userID] {
		out = append(out, *cloneConversation(s.conversations[convID]))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return activity(&out[i]).After(activity(&out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// setLastMessage reports whether the conversation exists.
func (s *ConversationStore) setLastMessage(id uuid.UUID, preview string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return false
	}
	c.LastMessage = &preview
	c.LastMessageAt = &at
	c.UpdatedAt = at
	return true
}

func (s *ConversationStore) TogglePin(_ context.Context, id, userID uuid.UUID) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	c.TogglePin(userID)
	c.UpdatedAt = time.Now().UTC()
	return cloneConversation(c), nil
}

func (s *ConversationStore) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok {
		c.Name = name
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *ConversationStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	c, ok := s.conversations[id]
	if ok {
		delete(s.conversations, id)
		for _, userID := range c.Participants {
			s.userIndex[userID] = removeID(s.userIndex[userID], id)
		}
	}
	s.mu.Unlock()

	// the conversation lock is released first; MessageStore takes its own
	// lock before ours in CreateWithPreview
	if ok && s.messages != nil {
		s.messages.dropConversation(id)
	}
	return ok, nil
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func activity(c *domain.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	out := *c
	out.Participants = append([]uuid.UUID(nil), c.Participants...)
	out.PinnedBy = append([]uuid.UUID{}, c.PinnedBy...)
	if c.AvatarURL != nil {
		v := *c.AvatarURL
		out.AvatarURL = &v
	}
	if c.LastMessage != nil {
		v := *c.LastMessage
		out.LastMessage = &v
	}
	if c.LastMessageAt != nil {
		v := *c.LastMessageAt
		out.LastMessageAt = &v
	}
	return &out
}

var _ repository.ConversationRepository = (*ConversationStore)(nil)
