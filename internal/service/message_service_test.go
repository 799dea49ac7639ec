package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaca-chat/yaca/internal/domain"
)

func TestSendPersistsThenNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)
	svc := f.messageService(nil, nil)

	msg, err := svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	require.NoError(t, err)

	stored, err := f.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, a.ID, stored.SenderID)
	assert.Equal(t, "hi", stored.Content.Data)

	updated, err := f.convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastMessage)
	assert.JSONEq(t, `{"data":"hi","type":"text"}`, *updated.LastMessage)
	assert.Equal(t, msg.CreatedAt, *updated.LastMessageAt)

	events := f.notifier.all()
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].kind)
	require.NotNil(t, events[0].message.Sender)
	assert.Equal(t, "ana", events[0].message.Sender.Username)
}

func TestSendStoreFailureSuppressesNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)

	svc := f.messageService(&failingMessages{MessageRepository: f.messages, failCreate: true}, nil)
	_, err := svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	assert.ErrorIs(t, err, errStoreDown)

	stored, err := f.messages.ListByConversation(ctx, conv.ID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, stored)

	updated, err := f.convs.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.LastMessage)

	assert.Empty(t, f.notifier.all())
}

func TestSendToDeletedConversationStoresNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)

	svc := f.messageService(nil, &vanishingConversations{ConversationRepository: f.convs})
	_, err := svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	stored, err := f.messages.ListByConversation(ctx, conv.ID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, f.notifier.all())
}

func TestSendRejectsBadTargets(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b, c := f.user(t, "ana"), f.user(t, "bo"), f.user(t, "cy")
	conv := f.conversation(t, a.ID, b.ID)
	svc := f.messageService(nil, nil)

	_, err := svc.Send(ctx, c.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.Send(ctx, a.ID, SendMessageInput{ConversationID: uuid.New(), Content: text("hi")})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: domain.Content{Data: "x", Type: "video"}})
	assert.ErrorIs(t, err, ErrInvalidContent)

	_, err = svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("   ")})
	assert.ErrorIs(t, err, ErrInvalidContent)

	assert.Empty(t, f.notifier.all())
}

func TestEditIsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)
	svc := f.messageService(nil, nil)

	msg, err := svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, b.ID, msg.ID, EditMessageInput{Content: text("hacked")})
	assert.ErrorIs(t, err, ErrNotMessageOwner)

	edited, err := svc.Edit(ctx, a.ID, msg.ID, EditMessageInput{Content: text("hello")})
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Content.Data)
	assert.False(t, edited.UpdatedAt.Before(msg.UpdatedAt))

	_, err = svc.Edit(ctx, a.ID, uuid.New(), EditMessageInput{Content: text("x")})
	assert.ErrorIs(t, err, ErrMessageNotFound)

	events := f.notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, "updated", events[1].kind)
}

func TestReactTogglesPerSender(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)
	svc := f.messageService(nil, nil)

	msg, err := svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	require.NoError(t, err)

	_, err = svc.React(ctx, b.ID, msg.ID, ReactInput{Type: domain.ReactionLaugh})
	require.NoError(t, err)

	got, err := svc.React(ctx, a.ID, msg.ID, ReactInput{Type: domain.ReactionLike})
	require.NoError(t, err)
	assert.Len(t, got.Reactions, 2)

	got, err = svc.React(ctx, a.ID, msg.ID, ReactInput{Type: domain.ReactionLike})
	require.NoError(t, err)
	assert.Equal(t, []domain.Reaction{{Type: domain.ReactionLaugh, Sender: b.ID}}, got.Reactions)

	_, err = svc.React(ctx, a.ID, msg.ID, ReactInput{Type: domain.ReactionLike})
	require.NoError(t, err)
	got, err = svc.React(ctx, a.ID, msg.ID, ReactInput{Type: domain.ReactionHeart})
	require.NoError(t, err)
	assert.Equal(t, []domain.Reaction{
		{Type: domain.ReactionLaugh, Sender: b.ID},
		{Type: domain.ReactionHeart, Sender: a.ID},
	}, got.Reactions)

	_, err = svc.React(ctx, a.ID, msg.ID, ReactInput{Type: "angry"})
	assert.ErrorIs(t, err, ErrInvalidReaction)
}

func TestConcurrentReactionsAreKept(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)

	msg, err := f.messageService(nil, nil).Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	require.NoError(t, err)

	// both reactions read the message before either writes
	svc := f.messageService(newGatedMessages(f.messages, 2), nil)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sender := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, sender uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.React(ctx, sender, msg.ID, ReactInput{Type: domain.ReactionLike})
		}(i, sender)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored, err := f.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Reaction{
		{Type: domain.ReactionLike, Sender: a.ID},
		{Type: domain.ReactionLike, Sender: b.ID},
	}, stored.Reactions)
}

func TestDeleteNotifiesAndRemoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)
	svc := f.messageService(nil, nil)

	msg, err := svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("hi")})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, b.ID, msg.ID), ErrNotMessageOwner)
	require.NoError(t, svc.Delete(ctx, a.ID, msg.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID, msg.ID), ErrMessageNotFound)

	gone, err := f.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	events := f.notifier.all()
	last := events[len(events)-1]
	assert.Equal(t, "deleted", last.kind)
	assert.Equal(t, conv.ID, last.conversationID)
	assert.Equal(t, msg.ID, last.messageID)
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, b := f.user(t, "ana"), f.user(t, "bo")
	conv := f.conversation(t, a.ID, b.ID)
	svc := f.messageService(nil, nil)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		msg, err := svc.Send(ctx, a.ID, SendMessageInput{ConversationID: conv.ID, Content: text("m")})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	page, err := svc.List(ctx, b.ID, conv.ID, nil, 3)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, ids[2], page.Messages[0].ID)

	page, err = svc.List(ctx, b.ID, conv.ID, &ids[2], 3)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Messages, 2)

	outsider := f.user(t, "cy")
	_, err = svc.List(ctx, outsider.ID, conv.ID, nil, 3)
	assert.ErrorIs(t, err, ErrNotParticipant)
}
