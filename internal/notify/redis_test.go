package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reverie-api/internal/domain"
	"github.com/phrazzld/reverie-api/internal/notify"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisBroker.
func setupRedis(t *testing.T) *notify.RedisBroker {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	broker, err := notify.NewRedisBroker("redis://"+host+":"+port.Port(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = broker.Close() })

	require.NoError(t, broker.Ping(ctx))
	return broker
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	broker := setupRedis(t)
	ctx := context.Background()
	owner, entryID := uuid.New(), uuid.New()

	sub, err := broker.Subscribe(ctx, owner)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	require.NoError(t, broker.Publish(ctx, notify.NewEntityUpdate(domain.JobTypeImage, owner, entryID, map[string]any{
		"image_status": domain.StatusCompleted,
	})))

	select {
	case msg := <-sub.Messages():
		assert.Contains(t, string(msg), `"type":"processed-entity-updated"`)
		assert.Contains(t, string(msg), entryID.String())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisBroker_PublishAfterClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	broker := setupRedis(t)
	require.NoError(t, broker.Close())

	err := broker.Publish(context.Background(), notify.NewEntityUpdate(domain.JobTypeAnalysis, uuid.New(), uuid.New(), nil))
	assert.ErrorIs(t, err, notify.ErrPublishFailed)
}

func TestNewRedisBroker_InvalidURL(t *testing.T) {
	_, err := notify.NewRedisBroker("://not-a-url", logger.Discard())
	assert.Error(t, err)
}
