package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
)

// Notifier fans real-time events out to connected clients. Services call it
// only after the corresponding store write has succeeded.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, msg *domain.Message)
	NotifyMessageUpdated(ctx context.Context, msg *domain.Message)
	NotifyMessageDeleted(ctx context.Context, conversationID, messageID uuid.UUID)
	NotifyTyping(ctx context.Context, conversationID, userID uuid.UUID)
	NotifyRead(ctx context.Context, conversationID, userID uuid.UUID)
	// NotifyConversationDeleted gets the conversation as it was, since its
	// participants can no longer be read from the store.
	NotifyConversationDeleted(ctx context.Context, conv *domain.Conversation, userID uuid.UUID)
	NotifyStatusChange(ctx context.Context, userID uuid.UUID, status domain.UserStatus)
}
