package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Cyclone1070/sysmate/internal/provider"
)

// ErrNotFound is returned when no transcript exists for a session id.
var ErrNotFound = errors.New("session not found")

// Store persists transcripts by session id.
type Store interface {
	Save(ctx context.Context, id string, msgs []provider.Message) error
	Load(ctx context.Context, id string) ([]provider.Message, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]provider.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]provider.Message)}
}

// Save stores a copy of msgs under id, replacing any earlier transcript.
func (s *MemoryStore) Save(_ context.Context, id string, msgs []provider.Message) error {
	cp := make([]provider.Message, len(msgs))
	copy(cp, msgs)
	s.mu.Lock()
	s.items[id] = cp
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the transcript, or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, id string) ([]provider.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]provider.Message, len(msgs))
	copy(cp, msgs)
	return cp, nil
}

// Delete removes the transcript. Deleting a missing id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// RedisStore keeps each transcript as a redis list of JSON messages.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	KeyPrefix string
	// TTL expires idle transcripts. Zero keeps them forever.
	TTL time.Duration
}

// NewRedisStore creates a store on rdb.
func NewRedisStore(rdb redis.UniversalClient, opts RedisOptions) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: opts.KeyPrefix, ttl: opts.TTL}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Save replaces the stored transcript atomically.
func (s *RedisStore) Save(ctx context.Context, id string, msgs []provider.Message) error {
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message %s: %w", m.ID, err)
		}
		values = append(values, data)
	}

	key := s.key(id)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// Load returns the transcript, or ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, id string) ([]provider.Message, error) {
	raw, err := s.rdb.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	msgs := make([]provider.Message, 0, len(raw))
	for _, r := range raw {
		var m provider.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Delete removes the transcript key.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
