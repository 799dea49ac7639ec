package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
	"github.com/yaca-chat/yaca/internal/repository/memory"
)

var errStoreDown = errors.New("store down")

type notification struct {
	kind           string
	conversationID uuid.UUID
	messageID      uuid.UUID
	userID         uuid.UUID
	status         domain.UserStatus
	message        *domain.Message
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) add(e notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.events...)
}

func (n *recordingNotifier) NotifyNewMessage(_ context.Context, msg *domain.Message) {
	n.add(notification{kind: "new", conversationID: msg.ConversationID, messageID: msg.ID, message: msg})
}

func (n *recordingNotifier) NotifyMessageUpdated(_ context.Context, msg *domain.Message) {
	n.add(notification{kind: "updated", conversationID: msg.ConversationID, messageID: msg.ID, message: msg})
}

func (n *recordingNotifier) NotifyMessageDeleted(_ context.Context, conversationID, messageID uuid.UUID) {
	n.add(notification{kind: "deleted", conversationID: conversationID, messageID: messageID})
}

func (n *recordingNotifier) NotifyTyping(_ context.Context, conversationID, userID uuid.UUID) {
	n.add(notification{kind: "typing", conversationID: conversationID, userID: userID})
}

func (n *recordingNotifier) NotifyRead(_ context.Context, conversationID, userID uuid.UUID) {
	n.add(notification{kind: "read", conversationID: conversationID, userID: userID})
}

func (n *recordingNotifier) NotifyConversationDeleted(_ context.Context, conv *domain.Conversation, userID uuid.UUID) {
	n.add(notification{kind: "conversation_deleted", conversationID: conv.ID, userID: userID})
}

func (n *recordingNotifier) NotifyStatusChange(_ context.Context, userID uuid.UUID, status domain.UserStatus) {
	n.add(notification{kind: "status", userID: userID, status: status})
}

// failingMessages fails the selected writes and passes everything else through.
type failingMessages struct {
	repository.MessageRepository
	failCreate bool
}

func (f *failingMessages) CreateWithPreview(ctx context.Context, msg *domain.Message, preview string) error {
	if f.failCreate {
		return errStoreDown
	}
	return f.MessageRepository.CreateWithPreview(ctx, msg, preview)
}

// vanishingConversations deletes a conversation right after handing it out,
// as if another participant deleted it mid-request.
type vanishingConversations struct {
	repository.ConversationRepository
}

func (v *vanishingConversations) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	conv, err := v.ConversationRepository.GetByID(ctx, id)
	if err != nil || conv == nil {
		return conv, err
	}
	if _, err := v.ConversationRepository.Delete(ctx, id); err != nil {
		return nil, err
	}
	return conv, nil
}

// gatedMessages holds every GetByID until n callers have read, so their
// writes start from the same snapshot.
type gatedMessages struct {
	repository.MessageRepository
	reads sync.WaitGroup
}

func newGatedMessages(inner repository.MessageRepository, n int) *gatedMessages {
	g := &gatedMessages{MessageRepository: inner}
	g.reads.Add(n)
	return g
}

func (g *gatedMessages) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msg, err := g.MessageRepository.GetByID(ctx, id)
	g.reads.Done()
	g.reads.Wait()
	return msg, err
}

type gatedConversations struct {
	repository.ConversationRepository
	reads sync.WaitGroup
}

func newGatedConversations(inner repository.ConversationRepository, n int) *gatedConversations {
	g := &gatedConversations{ConversationRepository: inner}
	g.reads.Add(n)
	return g
}

func (g *gatedConversations) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	conv, err := g.ConversationRepository.GetByID(ctx, id)
	g.reads.Done()
	g.reads.Wait()
	return conv, err
}

type failingUsers struct {
	repository.UserRepository
}

func (f *failingUsers) UpdateStatus(context.Context, uuid.UUID, domain.UserStatus) error {
	return errStoreDown
}

type fixture struct {
	users    *memory.UserStore
	convs    *memory.ConversationStore
	messages *memory.MessageStore
	notifier *recordingNotifier
}

func newFixture() *fixture {
	convs := memory.NewConversationStore()
	return &fixture{
		users:    memory.NewUserStore(),
		convs:    convs,
		messages: memory.NewMessageStore(convs),
		notifier: &recordingNotifier{},
	}
}

func (f *fixture) user(t *testing.T, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:       uuid.New(),
		Email:    username + "@example.com",
		Username: username,
		Name:     username,
		Status:   domain.StatusOffline,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) conversation(t *testing.T, participants ...uuid.UUID) *domain.Conversation {
	t.Helper()
	c := &domain.Conversation{ID: uuid.New(), Participants: participants, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.convs.Create(context.Background(), c))
	return c
}

func (f *fixture) messageService(msgs repository.MessageRepository, convs repository.ConversationRepository) *MessageService {
	if msgs == nil {
		msgs = f.messages
	}
	if convs == nil {
		convs = f.convs
	}
	svc := NewMessageService(msgs, convs, f.users)
	svc.SetNotifier(f.notifier)
	return svc
}

func text(s string) domain.Content {
	return domain.Content{Data: s, Type: domain.ContentText}
}
