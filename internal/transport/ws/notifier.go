package ws

import (
	"context"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/service"
)

// RouterNotifier implements service.Notifier on top of the Router.
type RouterNotifier struct {
	router *Router
}

func NewRouterNotifier(router *Router) *RouterNotifier {
	return &RouterNotifier{router: router}
}

// NotifyNewMessage skips the sender, who gets an ACK from its own session.
func (n *RouterNotifier) NotifyNewMessage(ctx context.Context, msg *domain.Message) {
	sender := msg.SenderID
	n.router.DeliverToConversation(ctx, msg.ConversationID, NewMessageEvent(EventNewMessage, msg), &sender)
}

func (n *RouterNotifier) NotifyMessageUpdated(ctx context.Context, msg *domain.Message) {
	n.router.DeliverToConversation(ctx, msg.ConversationID, NewMessageEvent(EventMessageUpdated, msg), nil)
}

func (n *RouterNotifier) NotifyMessageDeleted(ctx context.Context, conversationID, messageID uuid.UUID) {
	n.router.DeliverToConversation(ctx, conversationID, NewMessageDeletedEvent(conversationID, messageID), nil)
}

func (n *RouterNotifier) NotifyTyping(ctx context.Context, conversationID, userID uuid.UUID) {
	n.router.DeliverToConversation(ctx, conversationID, NewConversationEvent(EventUserTyping, conversationID, userID), &userID)
}

func (n *RouterNotifier) NotifyRead(ctx context.Context, conversationID, userID uuid.UUID) {
	n.router.DeliverToConversation(ctx, conversationID, NewConversationEvent(EventReadReceipt, conversationID, userID), &userID)
}

// NotifyConversationDeleted reaches every former participant, including the
// one who deleted it, so other open clients drop the conversation too.
func (n *RouterNotifier) NotifyConversationDeleted(_ context.Context, conv *domain.Conversation, userID uuid.UUID) {
	n.router.DeliverToUsers(conv.Participants, NewConversationEvent(EventConversationDeleted, conv.ID, userID), nil)
}

// NotifyStatusChange goes to every other connected user.
func (n *RouterNotifier) NotifyStatusChange(_ context.Context, userID uuid.UUID, status domain.UserStatus) {
	n.router.Broadcast(NewStatusChangeEvent(userID, status), &userID)
}

var _ service.Notifier = (*RouterNotifier)(nil)
