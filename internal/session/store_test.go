package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/sysmate/internal/provider"
)

func sampleTranscript() []provider.Message {
	h := NewHistory()
	h.Append(provider.UserMessage("show disk usage"))
	h.Append(callMsg("c1"))
	h.Append(resultMsg("c1"))
	h.Append(provider.AssistantMessage("done"))
	return h.Messages()
}

// exerciseStore runs the shared Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()

	_, err := s.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	msgs := sampleTranscript()
	require.NoError(t, s.Save(ctx, id, msgs))

	loaded, err := s.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, loaded, len(msgs))
	for i := range msgs {
		assert.Equal(t, msgs[i].ID, loaded[i].ID)
		assert.Equal(t, msgs[i].Role, loaded[i].Role)
		assert.Equal(t, msgs[i].Content, loaded[i].Content)
		assert.Equal(t, msgs[i].ToolCallID, loaded[i].ToolCallID)
		assert.Equal(t, len(msgs[i].ToolCalls), len(loaded[i].ToolCalls))
	}

	// save replaces rather than appends
	require.NoError(t, s.Save(ctx, id, msgs[:1]))
	loaded, err = s.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing transcript is not an error
	assert.NoError(t, s.Delete(ctx, id))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_IsolatesCallerSlices(t *testing.T) {
	s := NewMemoryStore()
	msgs := sampleTranscript()
	require.NoError(t, s.Save(context.Background(), "a", msgs))

	msgs[0].Content = "changed"

	loaded, err := s.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "show disk usage", loaded[0].Content)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SYSMATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SYSMATE_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	store := NewRedisStore(rdb, RedisOptions{KeyPrefix: "sysmate:test:", TTL: time.Minute})
	exerciseStore(t, store)
}
