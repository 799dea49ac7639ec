package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

func TestUserStoreRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u := &domain.User{ID: uuid.New(), Email: "a@x.io", Username: "alice", Status: domain.StatusOffline}
	require.NoError(t, s.Create(ctx, u))

	err := s.Create(ctx, &domain.User{ID: uuid.New(), Email: "a@x.io", Username: "other"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	missing, err := s.GetByEmail(ctx, "nobody@x.io")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserStoreResetStatus(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	for i, st := range []domain.UserStatus{domain.StatusOnline, domain.StatusOnline, domain.StatusDND} {
		require.NoError(t, s.Create(ctx, &domain.User{
			ID: uuid.New(), Email: string(rune('a'+i)) + "@x.io", Username: string(rune('a' + i)), Status: st,
		}))
	}

	n, err := s.ResetStatus(ctx, domain.StatusOnline, domain.StatusOffline)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	online, err := s.ListIDsByStatus(ctx, domain.StatusOnline)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestConversationStoreFindByParticipants(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	conv := &domain.Conversation{ID: uuid.New(), Participants: []uuid.UUID{a, b}, CreatedAt: time.Now()}
	require.NoError(t, s.Create(ctx, conv))

	got, err := s.FindByParticipants(ctx, []uuid.UUID{b, a})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conv.ID, got.ID)

	got, err = s.FindByParticipants(ctx, []uuid.UUID{a, b, c})
	require.NoError(t, err)
	assert.Nil(t, got)

	parts, err := s.GetParticipants(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, parts)
}

func TestConversationStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()
	a, b := uuid.New(), uuid.New()
	conv := &domain.Conversation{ID: uuid.New(), Participants: []uuid.UUID{a, b}}
	require.NoError(t, s.Create(ctx, conv))

	got, _ := s.GetByID(ctx, conv.ID)
	got.TogglePin(a)

	again, _ := s.GetByID(ctx, conv.ID)
	assert.Empty(t, again.PinnedBy)
}

func TestMessageStorePagination(t *testing.T) {
	ctx := context.Background()
	convs := NewConversationStore()
	s := NewMessageStore(convs)
	convID := uuid.New()
	require.NoError(t, convs.Create(ctx, &domain.Conversation{ID: convID, Participants: []uuid.UUID{uuid.New(), uuid.New()}}))
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id, _ := uuid.NewV7()
		ids = append(ids, id)
		require.NoError(t, s.CreateWithPreview(ctx, &domain.Message{ID: id, ConversationID: convID}, "m"))
	}

	page, err := s.ListByConversation(ctx, convID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[4], page[1].ID)

	page, err = s.ListByConversation(ctx, convID, &ids[3], 10)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, ids[0], page[0].ID)

	ok, err := s.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, ok)

	updated, err := s.UpdateContent(ctx, ids[0], domain.Content{Data: "x", Type: domain.ContentText}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestCreateWithPreviewNeedsConversation(t *testing.T) {
	ctx := context.Background()
	convs := NewConversationStore()
	s := NewMessageStore(convs)
	convID := uuid.New()
	at := time.Now().UTC()

	err := s.CreateWithPreview(ctx, &domain.Message{ID: uuid.New(), ConversationID: convID, CreatedAt: at}, "hi")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	page, err := s.ListByConversation(ctx, convID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	require.NoError(t, convs.Create(ctx, &domain.Conversation{ID: convID, Participants: []uuid.UUID{uuid.New(), uuid.New()}}))
	require.NoError(t, s.CreateWithPreview(ctx, &domain.Message{ID: uuid.New(), ConversationID: convID, CreatedAt: at}, "hi"))

	conv, err := convs.GetByID(ctx, convID)
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, "hi", *conv.LastMessage)
	assert.Equal(t, at, *conv.LastMessageAt)
}

func TestToggleReactionConcurrentSenders(t *testing.T) {
	ctx := context.Background()
	convs := NewConversationStore()
	s := NewMessageStore(convs)
	convID := uuid.New()
	require.NoError(t, convs.Create(ctx, &domain.Conversation{ID: convID, Participants: []uuid.UUID{uuid.New(), uuid.New()}}))
	msg := &domain.Message{ID: uuid.New(), ConversationID: convID}
	require.NoError(t, s.CreateWithPreview(ctx, msg, "hi"))

	senders := make([]uuid.UUID, 20)
	var wg sync.WaitGroup
	for i := range senders {
		senders[i] = uuid.New()
		wg.Add(1)
		go func(sender uuid.UUID) {
			defer wg.Done()
			_, err := s.ToggleReaction(ctx, msg.ID, sender, domain.ReactionLike, time.Now())
			assert.NoError(t, err)
		}(senders[i])
	}
	wg.Wait()

	got, err := s.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, got.Reactions, len(senders))

	missing, err := s.ToggleReaction(ctx, uuid.New(), senders[0], domain.ReactionLike, time.Now())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestConversationStoreTogglePin(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore()
	a, b := uuid.New(), uuid.New()
	conv := &domain.Conversation{ID: uuid.New(), Participants: []uuid.UUID{a, b}}
	require.NoError(t, s.Create(ctx, conv))

	got, err := s.TogglePin(ctx, conv.ID, a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, got.PinnedBy)

	got, err = s.TogglePin(ctx, conv.ID, b)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, got.PinnedBy)

	got, err = s.TogglePin(ctx, conv.ID, a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, got.PinnedBy)

	got, err = s.TogglePin(ctx, uuid.New(), a)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConversationStoreDeleteDropsMessages(t *testing.T) {
	ctx := context.Background()
	convs := NewConversationStore()
	s := NewMessageStore(convs)
	a, b := uuid.New(), uuid.New()
	conv := &domain.Conversation{ID: uuid.New(), Participants: []uuid.UUID{a, b}}
	require.NoError(t, convs.Create(ctx, conv))
	msg := &domain.Message{ID: uuid.New(), ConversationID: conv.ID}
	require.NoError(t, s.CreateWithPreview(ctx, msg, "hi"))

	ok, err := convs.Delete(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = convs.Delete(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	gone, err := s.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	list, err := convs.ListByUser(ctx, a, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	found, err := convs.FindByParticipants(ctx, []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Nil(t, found)
}
