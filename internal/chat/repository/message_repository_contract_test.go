package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	errprocess "marketplace_chat_service/pkg/err"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// runMessageRepositoryContract every backend must pass this, rooms are unique per subtest so one store can be shared
func runMessageRepositoryContract(t *testing.T, repo MessageRepository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ListByRoom ascending by created_at", func(t *testing.T) {
		room := "room-" + uuid.NewString()
		late := domain.NewMessage(room, "1", strPtr("2"), nil, "third", base.Add(2*time.Second))
		early := domain.NewMessage(room, "1", strPtr("2"), strPtr("77"), "first", base)
		mid := domain.NewMessage(room, "2", strPtr("1"), nil, "second", base.Add(time.Second))
		other := domain.NewMessage("other-"+uuid.NewString(), "1", nil, nil, "elsewhere", base)

		for _, m := range []*domain.Message{late, early, mid, other} {
			require.NoError(t, repo.Create(ctx, m))
		}

		got, err := repo.ListByRoom(ctx, room)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].Body, got[1].Body, got[2].Body})
		assert.True(t, got[0].CreatedAt.Equal(base))
		require.NotNil(t, got[0].ListingID)
		assert.Equal(t, "77", *got[0].ListingID)
		assert.Nil(t, got[1].ListingID)
		assert.Equal(t, domain.StateUnread, got[0].State)

		empty, err := repo.ListByRoom(ctx, "empty-"+uuid.NewString())
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("FindByID", func(t *testing.T) {
		m := domain.NewMessage("room-"+uuid.NewString(), "1", strPtr("2"), nil, "hello", base)
		require.NoError(t, repo.Create(ctx, m))

		got, err := repo.FindByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, m.RoomID, got.RoomID)
		assert.Equal(t, "hello", got.Body)
		assert.True(t, got.IsReceiver("2"))

		_, err = repo.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, errprocess.ErrNotFound)
	})

	t.Run("SetState is monotonic", func(t *testing.T) {
		m := domain.NewMessage("room-"+uuid.NewString(), "1", strPtr("2"), nil, "x", base)
		require.NoError(t, repo.Create(ctx, m))

		changed, err := repo.SetState(ctx, m.ID, domain.StateDelivered)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.SetState(ctx, m.ID, domain.StateSeen)
		require.NoError(t, err)
		assert.True(t, changed)

		for _, lower := range []domain.DeliveryState{domain.StateSeen, domain.StateDelivered, domain.StateUnread} {
			changed, err = repo.SetState(ctx, m.ID, lower)
			require.NoError(t, err)
			assert.False(t, changed, "state %s must not change a seen message", lower)
		}

		got, err := repo.FindByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateSeen, got.State)

		changed, err = repo.SetState(ctx, uuid.NewString(), domain.StateSeen)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("concurrent SetState has exactly one winner", func(t *testing.T) {
		m := domain.NewMessage("room-"+uuid.NewString(), "1", strPtr("2"), nil, "race", base)
		require.NoError(t, repo.Create(ctx, m))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				changed, err := repo.SetState(ctx, m.ID, domain.StateSeen)
				assert.NoError(t, err)
				if changed {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("ListUnread and CountUnreadByRoom", func(t *testing.T) {
		reader := "reader-" + uuid.NewString()[:8]
		roomA := "a-" + uuid.NewString()
		roomB := "b-" + uuid.NewString()

		a1 := domain.NewMessage(roomA, "s1", &reader, nil, "a1", base)
		a2 := domain.NewMessage(roomA, "s1", &reader, nil, "a2", base.Add(time.Second))
		a3 := domain.NewMessage(roomA, "s2", &reader, nil, "a3", base.Add(2*time.Second))
		seen := domain.NewMessage(roomA, "s1", &reader, nil, "seen", base.Add(3*time.Second))
		mine := domain.NewMessage(roomA, reader, strPtr("s1"), nil, "mine", base.Add(4*time.Second))
		b1 := domain.NewMessage(roomB, "s3", &reader, nil, "b1", base)
		for _, m := range []*domain.Message{a1, a2, a3, seen, mine, b1} {
			require.NoError(t, repo.Create(ctx, m))
		}
		_, err := repo.SetState(ctx, seen.ID, domain.StateSeen)
		require.NoError(t, err)
		_, err = repo.SetState(ctx, a2.ID, domain.StateDelivered)
		require.NoError(t, err)

		unread, err := repo.ListUnread(ctx, roomA, reader)
		require.NoError(t, err)
		require.Len(t, unread, 3)
		assert.Equal(t, []string{a1.ID, a2.ID, a3.ID}, []string{unread[0].ID, unread[1].ID, unread[2].ID})

		counts, err := repo.CountUnreadByRoom(ctx, reader)
		require.NoError(t, err)
		assert.Equal(t, []domain.RoomUnread{
			{RoomID: roomA, SenderID: "s1", UnreadCount: 2},
			{RoomID: roomA, SenderID: "s2", UnreadCount: 1},
			{RoomID: roomB, SenderID: "s3", UnreadCount: 1},
		}, counts)

		none, err := repo.CountUnreadByRoom(ctx, "nobody-"+uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
