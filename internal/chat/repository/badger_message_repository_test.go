package repository

import (
	"context"
	"testing"
	"time"

	"marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/pkg/database"

	"github.com/stretchr/testify/require"
)

func TestBadgerMessageRepository(t *testing.T) {
	db, err := database.NewBadgerDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runMessageRepositoryContract(t, NewBadgerMessageRepository(db))
}

func TestBadgerMessageRepository_InMemory(t *testing.T) {
	db, err := database.NewBadgerDB("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	runMessageRepositoryContract(t, NewBadgerMessageRepository(db))
}

func TestBadgerRoomPrefixIsolation(t *testing.T) {
	db, err := database.NewBadgerDB("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := NewBadgerMessageRepository(db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Create(ctx, domain.NewMessage("a", "1", nil, nil, "in a", now)))
	require.NoError(t, repo.Create(ctx, domain.NewMessage("a:b", "1", nil, nil, "in a:b", now)))
	require.NoError(t, repo.Create(ctx, domain.NewMessage("ab", "1", nil, nil, "in ab", now)))

	got, err := repo.ListByRoom(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "in a", got[0].Body)
}
