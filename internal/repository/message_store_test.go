package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"quick_chat/internal/domain"
	apperrors "quick_chat/pkg/errors"
)

// storeFactory returns an empty-looking store and the mock clock it
// stamps messages with. Every case uses fresh principals, so stores
// backed by a shared database need no cleanup between cases.
type storeFactory func(t *testing.T) (MessageRepository, *clock.Mock)

func newMockClock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return clk
}

// runMessageStoreContract checks the behavior every MessageRepository
// implementation must share.
func runMessageStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("append then fetch keeps order", func(t *testing.T) { testAppendThenFetchKeepsOrder(t, newStore) })
	t.Run("append rejects empty content", func(t *testing.T) { testAppendRejectsEmptyContent(t, newStore) })
	t.Run("fetch pages from most recent", func(t *testing.T) { testFetchPagesFromMostRecent(t, newStore) })
	t.Run("mark seen is idempotent", func(t *testing.T) { testMarkSeenIsIdempotent(t, newStore) })
	t.Run("delete for everyone window boundary", func(t *testing.T) { testDeleteForEveryoneWindowBoundary(t, newStore) })
	t.Run("delete for everyone rejects non-sender", func(t *testing.T) { testDeleteForEveryoneRejectsNonSender(t, newStore) })
	t.Run("delete for me hides only for viewer", func(t *testing.T) { testDeleteForMeHidesOnlyForViewer(t, newStore) })
	t.Run("delete conversation removes both sides", func(t *testing.T) { testDeleteConversationRemovesBothSides(t, newStore) })
}

func testAppendThenFetchKeepsOrder(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	store, clk := newStore(t)
	a, b := uuid.New(), uuid.New()

	// Given two earlier messages, one of them at the same millisecond
	first, err := store.Append(ctx, a, b, "first", "")
	req.NoError(err)
	second, err := store.Append(ctx, b, a, "second", "")
	req.NoError(err)
	clk.Add(time.Second)

	// When a third message is appended
	third, err := store.Append(ctx, a, b, "", "https://cdn.example/img.png")
	req.NoError(err)

	// Then both sides see all three in ascending order
	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		page, err := store.FetchConversation(ctx, pair[0], pair[1], 1, 50)
		req.NoError(err)
		req.Len(page, 3)
		req.Equal([]uuid.UUID{first.ID, second.ID, third.ID}, ids(page))
	}
	req.False(third.Seen)
	req.True(clk.Now().Equal(third.CreatedAt))
	req.Less(first.Seq, second.Seq)
}

func testAppendRejectsEmptyContent(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	store, _ := newStore(t)

	_, err := store.Append(context.Background(), uuid.New(), uuid.New(), "   ", "")

	req.ErrorIs(err, apperrors.ErrInvalidMessage)
}

func testFetchPagesFromMostRecent(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	store, clk := newStore(t)
	a, b := uuid.New(), uuid.New()

	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, a, b, fmt.Sprintf("m%d", i), "")
		req.NoError(err)
		clk.Add(time.Millisecond)
	}

	page1, err := store.FetchConversation(ctx, a, b, 1, 2)
	req.NoError(err)
	page3, err := store.FetchConversation(ctx, a, b, 3, 2)
	req.NoError(err)
	page4, err := store.FetchConversation(ctx, a, b, 4, 2)
	req.NoError(err)

	req.Equal([]string{"m3", "m4"}, texts(page1))
	req.Equal([]string{"m0"}, texts(page3))
	req.Empty(page4)
}

func testMarkSeenIsIdempotent(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := newStore(t)
	a, b := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		_, err := store.Append(ctx, a, b, "ping", "")
		req.NoError(err)
	}
	_, err := store.Append(ctx, b, a, "pong", "")
	req.NoError(err)

	// When B marks the conversation seen twice
	n1, err := store.MarkSeen(ctx, b, a)
	req.NoError(err)
	once, err := store.UnreadCount(ctx, b)
	req.NoError(err)
	n2, err := store.MarkSeen(ctx, b, a)
	req.NoError(err)
	twice, err := store.UnreadCount(ctx, b)
	req.NoError(err)

	// Then the second call changes nothing
	req.EqualValues(3, n1)
	req.EqualValues(0, n2)
	req.Equal(once, twice)
	req.EqualValues(0, twice)

	// And the message B sent is still unread for A
	unreadA, err := store.UnreadCount(ctx, a)
	req.NoError(err)
	req.EqualValues(1, unreadA)
}

func testDeleteForEveryoneWindowBoundary(t *testing.T, newStore storeFactory) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "well inside the window", elapsed: 30 * time.Second},
		{name: "just before the boundary", elapsed: 119*time.Second + 999*time.Millisecond},
		{name: "exactly at the boundary", elapsed: 2 * time.Minute},
		{name: "just after the boundary", elapsed: 120*time.Second + time.Millisecond, wantErr: apperrors.ErrWindowExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			store, clk := newStore(t)
			a, b := uuid.New(), uuid.New()

			msg, err := store.Append(ctx, a, b, "oops", "file.png")
			req.NoError(err)
			clk.Add(tt.elapsed)

			deleted, err := store.DeleteForEveryone(ctx, a, msg.ID)
			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				stored, err := store.GetByID(ctx, msg.ID)
				req.NoError(err)
				req.Equal("oops", stored.Text)
				req.Nil(stored.DeletedForEveryoneAt)
				return
			}

			req.NoError(err)
			req.Empty(deleted.Text)
			req.Empty(deleted.Attachment)
			req.NotNil(deleted.DeletedForEveryoneAt)

			page, err := store.FetchConversation(ctx, b, a, 1, 10)
			req.NoError(err)
			req.Len(page, 1)
			req.True(page[0].IsDeletedForEveryone())
		})
	}
}

func testDeleteForEveryoneRejectsNonSender(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := newStore(t)
	a, b := uuid.New(), uuid.New()

	msg, err := store.Append(ctx, a, b, "hello", "")
	req.NoError(err)

	_, err = store.DeleteForEveryone(ctx, b, msg.ID)
	req.ErrorIs(err, apperrors.ErrNotSender)

	page, err := store.FetchConversation(ctx, a, b, 1, 10)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("hello", page[0].Text)
	req.Nil(page[0].DeletedForEveryoneAt)
}

func testDeleteForMeHidesOnlyForViewer(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := newStore(t)
	a, b, stranger := uuid.New(), uuid.New(), uuid.New()

	msg, err := store.Append(ctx, a, b, "secret", "")
	req.NoError(err)

	req.NoError(store.DeleteForMe(ctx, b, msg.ID))
	req.NoError(store.DeleteForMe(ctx, b, msg.ID))
	req.ErrorIs(store.DeleteForMe(ctx, stranger, msg.ID), apperrors.ErrMessageNotFound)
	req.ErrorIs(store.DeleteForMe(ctx, b, uuid.New()), apperrors.ErrMessageNotFound)

	forB, err := store.FetchConversation(ctx, b, a, 1, 10)
	req.NoError(err)
	req.Empty(forB)

	forA, err := store.FetchConversation(ctx, a, b, 1, 10)
	req.NoError(err)
	req.Len(forA, 1)
	req.Equal("secret", forA[0].Text)

	stored, err := store.GetByID(ctx, msg.ID)
	req.NoError(err)
	req.Equal([]uuid.UUID{b}, stored.DeletedFor)
}

func testDeleteConversationRemovesBothSides(t *testing.T, newStore storeFactory) {
	req := require.New(t)
	ctx := context.Background()
	store, _ := newStore(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	var last *domain.Message
	for i := 0; i < 3; i++ {
		var err error
		last, err = store.Append(ctx, a, b, fmt.Sprintf("m%d", i), "")
		req.NoError(err)
	}
	_, err := store.Append(ctx, a, c, "keep me", "")
	req.NoError(err)

	removed, err := store.DeleteConversation(ctx, a, b)
	req.NoError(err)
	req.EqualValues(3, removed)

	forA, err := store.FetchConversation(ctx, a, b, 1, 10)
	req.NoError(err)
	req.Empty(forA)
	forB, err := store.FetchConversation(ctx, b, a, 1, 10)
	req.NoError(err)
	req.Empty(forB)

	_, err = store.GetByID(ctx, last.ID)
	req.ErrorIs(err, apperrors.ErrMessageNotFound)

	other, err := store.FetchConversation(ctx, c, a, 1, 10)
	req.NoError(err)
	req.Len(other, 1)
}

func ids(messages []*domain.Message) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

func texts(messages []*domain.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Text)
	}
	return out
}
