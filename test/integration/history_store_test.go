package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/history"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a running Redis. Set INTEGRATION_REDIS_URL to enable, e.g.
// INTEGRATION_REDIS_URL=redis://localhost:6379 go test ./test/integration/...
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("INTEGRATION_REDIS_URL")
	if url == "" {
		t.Skip("INTEGRATION_REDIS_URL not set, skipping redis integration test")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisStoreAppendAndLoad(t *testing.T) {
	client := newTestRedis(t)
	store := history.NewRedisStore(client, time.Hour)
	ctx := context.Background()

	sessionID := uuid.New().String()

	turns := []llm.Message{
		{Role: "user", Content: "what is photosynthesis?"},
		{Role: "assistant", Content: "it converts light into chemical energy"},
		{Role: "user", Content: "where does it happen?"},
	}
	for _, turn := range turns {
		require.NoError(t, store.Append(ctx, sessionID, turn))
	}

	loaded, err := store.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, turns, loaded, "turns come back in append order")
}

func TestRedisStoreUnknownSession(t *testing.T) {
	client := newTestRedis(t)
	store := history.NewRedisStore(client, time.Hour)

	loaded, err := store.Load(context.Background(), uuid.New().String())

	require.NoError(t, err)
	assert.Empty(t, loaded, "an unknown session reads as an empty transcript")
}

func TestRedisStoreSessionsAreIsolated(t *testing.T) {
	client := newTestRedis(t)
	store := history.NewRedisStore(client, time.Hour)
	ctx := context.Background()

	a := uuid.New().String()
	b := uuid.New().String()

	require.NoError(t, store.Append(ctx, a, llm.Message{Role: "user", Content: "only in a"}))

	loadedB, err := store.Load(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, loadedB)
}
