package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
)

// Event types - Client → Server
const (
	EventSendMessage   = "SEND_MESSAGE"
	EventEditMessage   = "EDIT_MESSAGE"
	EventReactMessage  = "REACT_MESSAGE"
	EventDeleteMessage = "DELETE_MESSAGE"
	EventTyping        = "TYPING"
	EventRead          = "READ"
)

// Event types - Server → Client
const (
	EventNewMessage     = "NEW_MESSAGE"
	EventAck            = "ACK"
	EventMessageUpdated = "MESSAGE_UPDATED"
	EventMessageDeleted = "MESSAGE_DELETED"
	EventUserTyping     = "USER_TYPING"
	EventReadReceipt    = "READ"
	EventStatusChange   = "STATUS_CHANGE"

	EventConversationDeleted = "CONVERSATION_DELETED"
)

// envelope is decoded first to pick the payload type.
type envelope struct {
	Type string `json:"type"`
}

// --- Client → Server payloads ---

type sendMessagePayload struct {
	DestinationID uuid.UUID      `json:"destinationId"`
	Content       domain.Content `json:"content"`
	TempID        string         `json:"tempId"`
}

type editMessagePayload struct {
	MessageID  uuid.UUID      `json:"messageId"`
	NewContent domain.Content `json:"newContent"`
}

type reactMessagePayload struct {
	MessageID    uuid.UUID           `json:"messageId"`
	ReactionType domain.ReactionType `json:"reactionType"`
}

type deleteMessagePayload struct {
	MessageID uuid.UUID `json:"messageId"`
}

type conversationPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

// --- Server → Client events ---

type MessageEvent struct {
	Type      string          `json:"type"`
	Message   *domain.Message `json:"message"`
	Timestamp int64           `json:"ts"`
}

type AckEvent struct {
	Type      string          `json:"type"`
	TempID    string          `json:"tempId"`
	Message   *domain.Message `json:"message"`
	Timestamp int64           `json:"ts"`
}

type MessageDeletedEvent struct {
	Type           string    `json:"type"`
	MessageID      uuid.UUID `json:"messageId"`
	ConversationID uuid.UUID `json:"conversationId"`
	Timestamp      int64     `json:"ts"`
}

// ConversationEvent carries USER_TYPING, READ and CONVERSATION_DELETED.
type ConversationEvent struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
	Timestamp      int64     `json:"ts"`
}

type StatusChangeEvent struct {
	Type      string            `json:"type"`
	UserID    uuid.UUID         `json:"userId"`
	Status    domain.UserStatus `json:"status"`
	Timestamp int64             `json:"ts"`
}

func now() int64 { return time.Now().UnixMilli() }

func NewMessageEvent(eventType string, msg *domain.Message) *MessageEvent {
	return &MessageEvent{Type: eventType, Message: msg, Timestamp: now()}
}

func NewAckEvent(tempID string, msg *domain.Message) *AckEvent {
	return &AckEvent{Type: EventAck, TempID: tempID, Message: msg, Timestamp: now()}
}

func NewMessageDeletedEvent(conversationID, messageID uuid.UUID) *MessageDeletedEvent {
	return &MessageDeletedEvent{
		Type:           EventMessageDeleted,
		MessageID:      messageID,
		ConversationID: conversationID,
		Timestamp:      now(),
	}
}

func NewConversationEvent(eventType string, conversationID, userID uuid.UUID) *ConversationEvent {
	return &ConversationEvent{Type: eventType, ConversationID: conversationID, UserID: userID, Timestamp: now()}
}

func NewStatusChangeEvent(userID uuid.UUID, status domain.UserStatus) *StatusChangeEvent {
	return &StatusChangeEvent{Type: EventStatusChange, UserID: userID, Status: status, Timestamp: now()}
}
