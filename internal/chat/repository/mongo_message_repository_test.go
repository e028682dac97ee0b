package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marketplace_chat_service/pkg/database"
	"marketplace_chat_service/pkg/logger"
	testtool "marketplace_chat_service/pkg/test_tool"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMongoMessageRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	logger.SetNewNop()
	ctx := context.Background()

	// **啟動 MongoDB**
	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	mongo, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", host, port),
		RetryCount:    5,
		RetryInterval: time.Second,
	}, "test_chat_db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongo.Close(ctx) })

	require.NoError(t, EnsureMongoIndexes(ctx, mongo.Database))
	runMessageRepositoryContract(t, NewMongoMessageRepository(mongo.Database))
}
