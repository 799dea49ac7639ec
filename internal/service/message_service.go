package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotMessageOwner = errors.New("only the message sender can perform this action")
	ErrInvalidContent  = errors.New("content must have data and a type of text or image")
	ErrInvalidReaction = errors.New("unknown reaction type")
)

type MessageService struct {
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	notifier    Notifier
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		userRepo:    userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	ConversationID uuid.UUID      `json:"conversationId"`
	Content        domain.Content `json:"content"`
}

type EditMessageInput struct {
	Content domain.Content `json:"content"`
}

type ReactInput struct {
	Type domain.ReactionType `json:"type"`
}

type MessageListResponse struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"hasMore"`
}

// Send persists a message, updates the conversation preview and only then
// notifies the other participants. The returned message carries the sender
// profile when it could be loaded.
func (s *MessageService) Send(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	content := normalizeContent(input.Content)
	if !content.Valid() {
		return nil, ErrInvalidContent
	}

	conv, err := s.convRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		ID:             id,
		ConversationID: conv.ID,
		Content:        content,
		Reactions:      []domain.Reaction{},
		SenderID:       senderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.messageRepo.CreateWithPreview(ctx, msg, content.Preview()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// deleted after we loaded it
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("creating message: %w", err)
	}

	s.hydrate(ctx, msg)

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(ctx, msg)
	}

	return msg, nil
}

func (s *MessageService) Get(ctx context.Context, userID, messageID uuid.UUID) (*domain.Message, error) {
	msg, err := s.loadForParticipant(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	s.hydrate(ctx, msg)
	return msg, nil
}

func (s *MessageService) List(ctx context.Context, userID, conversationID uuid.UUID, before *uuid.UUID, limit int) (*MessageListResponse, error) {
	if err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// one extra row tells us whether an older page exists
	messages, err := s.messageRepo.ListByConversation(ctx, conversationID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

func (s *MessageService) Edit(ctx context.Context, userID, messageID uuid.UUID, input EditMessageInput) (*domain.Message, error) {
	content := normalizeContent(input.Content)
	if !content.Valid() {
		return nil, ErrInvalidContent
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return nil, ErrNotMessageOwner
	}

	updated, err := s.messageRepo.UpdateContent(ctx, messageID, content, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}
	if updated == nil {
		return nil, ErrMessageNotFound
	}

	s.hydrate(ctx, updated)

	if s.notifier != nil {
		s.notifier.NotifyMessageUpdated(ctx, updated)
	}

	return updated, nil
}

// React toggles userID's reaction on a message: the same type removes it, a
// different type replaces it, otherwise it is added.
func (s *MessageService) React(ctx context.Context, userID, messageID uuid.UUID, input ReactInput) (*domain.Message, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidReaction
	}

	msg, err := s.loadForParticipant(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	updated, err := s.messageRepo.ToggleReaction(ctx, msg.ID, userID, input.Type, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("updating reactions: %w", err)
	}
	if updated == nil {
		return nil, ErrMessageNotFound
	}

	s.hydrate(ctx, updated)

	if s.notifier != nil {
		s.notifier.NotifyMessageUpdated(ctx, updated)
	}

	return updated, nil
}

func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return ErrNotMessageOwner
	}

	deleted, err := s.messageRepo.Delete(ctx, messageID)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	if !deleted {
		return ErrMessageNotFound
	}

	if s.notifier != nil {
		s.notifier.NotifyMessageDeleted(ctx, msg.ConversationID, messageID)
	}

	return nil
}

func (s *MessageService) loadForParticipant(ctx context.Context, userID, messageID uuid.UUID) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if err := s.checkParticipant(ctx, userID, msg.ConversationID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) checkParticipant(ctx context.Context, userID, conversationID uuid.UUID) error {
	return checkParticipant(ctx, s.convRepo, userID, conversationID)
}

// hydrate attaches the sender profile. A missing or unreadable profile
// leaves Sender nil; the message itself is already stored.
func (s *MessageService) hydrate(ctx context.Context, msg *domain.Message) {
	profile, err := s.userRepo.GetProfile(ctx, msg.SenderID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", msg.SenderID.String()).Msg("loading sender profile")
		return
	}
	msg.Sender = profile
}
