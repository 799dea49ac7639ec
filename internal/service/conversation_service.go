package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrTooFewParticipants   = errors.New("a conversation needs at least one other participant")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidName          = errors.New("name is required")
)

const maxNamedParticipants = 3

type ConversationService struct {
	convRepo repository.ConversationRepository
	userRepo repository.UserRepository
	notifier Notifier
}

func NewConversationService(convRepo repository.ConversationRepository, userRepo repository.UserRepository) *ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		userRepo: userRepo,
	}
}

func (s *ConversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// GetOrCreate returns the conversation whose participant set is exactly
// participants plus userID, creating it if none exists. The bool reports
// whether a new conversation was created.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID uuid.UUID, participants []uuid.UUID) (*domain.Conversation, bool, error) {
	ids := domain.UniqueIDs(append([]uuid.UUID{userID}, participants...))
	if len(ids) < 2 {
		return nil, false, ErrTooFewParticipants
	}

	existing, err := s.convRepo.FindByParticipants(ctx, ids)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	profiles, err := s.userRepo.ListProfiles(ctx, ids)
	if err != nil {
		return nil, false, err
	}
	if len(profiles) != len(ids) {
		return nil, false, ErrUserNotFound
	}

	var others []domain.Profile
	for _, p := range profiles {
		if p.ID != userID {
			others = append(others, p)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("generating conversation id: %w", err)
	}

	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:           id,
		Participants: ids,
		Name:         conversationName(others),
		PinnedBy:     []uuid.UUID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(others) == 1 {
		conv.AvatarURL = others[0].AvatarURL
	}

	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, false, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, true, nil
}

func (s *ConversationService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// List returns the user's conversations, most recent activity first.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	convs, err := s.convRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// TogglePin flips the conversation's pinned state for userID.
func (s *ConversationService) TogglePin(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	updated, err := s.convRepo.TogglePin(ctx, conv.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("updating pinned set: %w", err)
	}
	if updated == nil {
		return nil, ErrConversationNotFound
	}
	return updated, nil
}

// Delete removes the conversation and all of its messages. Any participant
// may delete it.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID uuid.UUID) error {
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	deleted, err := s.convRepo.Delete(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if !deleted {
		return ErrConversationNotFound
	}

	if s.notifier != nil {
		s.notifier.NotifyConversationDeleted(ctx, conv, userID)
	}
	return nil
}

func (s *ConversationService) Rename(ctx context.Context, userID, conversationID uuid.UUID, name string) (*domain.Conversation, error) {
	name = normalizeText(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	conv, err := s.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.convRepo.UpdateName(ctx, conv.ID, name); err != nil {
		return nil, fmt.Errorf("renaming conversation: %w", err)
	}
	conv.Name = name
	return conv, nil
}

// Typing relays a typing indicator to the other participants.
func (s *ConversationService) Typing(ctx context.Context, userID, conversationID uuid.UUID) error {
	if err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyTyping(ctx, conversationID, userID)
	}
	return nil
}

// MarkRead tells the other participants that userID has read the conversation.
// Nothing is persisted.
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID uuid.UUID) error {
	if err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyRead(ctx, conversationID, userID)
	}
	return nil
}

func (s *ConversationService) checkParticipant(ctx context.Context, userID, conversationID uuid.UUID) error {
	return checkParticipant(ctx, s.convRepo, userID, conversationID)
}

// checkParticipant resolves the live participant set, so membership is
// never judged from a stale copy.
func checkParticipant(ctx context.Context, convRepo repository.ConversationRepository, userID, conversationID uuid.UUID) error {
	participants, err := convRepo.GetParticipants(ctx, conversationID)
	if err != nil {
		return err
	}
	if participants == nil {
		return ErrConversationNotFound
	}
	for _, id := range participants {
		if id == userID {
			return nil
		}
	}
	return ErrNotParticipant
}

// conversationName names a conversation after the other participants:
// "Ana", "Ana, Bo", or "Ana, Bo, Cy +2".
func conversationName(others []domain.Profile) string {
	if len(others) == 0 {
		return "Unknown User"
	}
	names := make([]string, 0, maxNamedParticipants)
	for i, p := range others {
		if i == maxNamedParticipants {
			break
		}
		name := p.Name
		if name == "" {
			name = p.Username
		}
		names = append(names, name)
	}
	out := strings.Join(names, ", ")
	if extra := len(others) - len(names); extra > 0 {
		out = fmt.Sprintf("%s +%d", out, extra)
	}
	return out
}
