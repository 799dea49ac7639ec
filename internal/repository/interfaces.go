package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
)

// Lookups return (nil, nil) when the record does not exist.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	ListProfiles(ctx context.Context, ids []uuid.UUID) ([]domain.Profile, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	// UpdateStatus also stamps last_seen.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error
	ListIDsByStatus(ctx context.Context, status domain.UserStatus) ([]uuid.UUID, error)
	ResetStatus(ctx context.Context, from, to domain.UserStatus) (int64, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// GetParticipants returns nil when the conversation does not exist.
	GetParticipants(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	FindByParticipants(ctx context.Context, participants []uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error)
	// TogglePin adds or removes userID from the pinning set in one step and
	// returns the stored row, or nil if it is gone.
	TogglePin(ctx context.Context, id, userID uuid.UUID) (*domain.Conversation, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	// Delete removes the conversation and its messages.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type MessageRepository interface {
	// CreateWithPreview stores the message and sets its conversation's
	// last-message preview together; either both happen or neither does.
	// It returns ErrNotFound if the conversation is gone.
	CreateWithPreview(ctx context.Context, msg *domain.Message, preview string) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	// UpdateContent and ToggleReaction return the stored row, or nil if it is gone.
	UpdateContent(ctx context.Context, id uuid.UUID, content domain.Content, at time.Time) (*domain.Message, error)
	// ToggleReaction applies domain.ToggleReaction to the stored reactions
	// without letting a concurrent toggle in between.
	ToggleReaction(ctx context.Context, id, sender uuid.UUID, t domain.ReactionType, at time.Time) (*domain.Message, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
