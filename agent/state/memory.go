package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// Memory summaries persist per user across sessions, unlike SessionState
// which dies with the conversation.

var ErrInvalidUser = errors.New("user id is empty")

const defaultMemoryKeyPrefix = "dialogo:memory:"

// RedisMemoryStore keeps user memory summaries in the same Upstash Redis
// instance as the session store, under a separate key prefix and no TTL.
type RedisMemoryStore struct {
	redis  *UpstashRedisStore
	prefix string
}

func NewRedisMemoryStore(redis *UpstashRedisStore) (*RedisMemoryStore, error) {
	if redis == nil {
		return nil, errors.New("redis store is required")
	}
	return &RedisMemoryStore{redis: redis, prefix: defaultMemoryKeyPrefix}, nil
}

func (m *RedisMemoryStore) ReadSummary(ctx context.Context, userID string) (string, error) {
	key, err := m.key(userID)
	if err != nil {
		return "", err
	}
	resp, err := m.redis.exec(ctx, []any{"GET", key})
	if err != nil {
		return "", err
	}
	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return "", nil
	}
	var summary string
	if err := json.Unmarshal(result, &summary); err != nil {
		return "", err
	}
	return summary, nil
}

func (m *RedisMemoryStore) WriteSummary(ctx context.Context, userID, update string) error {
	key, err := m.key(userID)
	if err != nil {
		return err
	}
	update = strings.TrimSpace(update)
	if update == "" {
		return nil
	}
	_, err = m.redis.exec(ctx, []any{"SET", key, update})
	return err
}

func (m *RedisMemoryStore) key(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrInvalidUser
	}
	return m.prefix + userID, nil
}

// InProcMemoryStore keeps summaries in a map, for the CLI without Redis and
// for tests.
type InProcMemoryStore struct {
	mu        sync.RWMutex
	summaries map[string]string
}

func NewInProcMemoryStore() *InProcMemoryStore {
	return &InProcMemoryStore{summaries: make(map[string]string)}
}

func (m *InProcMemoryStore) ReadSummary(_ context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrInvalidUser
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaries[userID], nil
}

func (m *InProcMemoryStore) WriteSummary(_ context.Context, userID, update string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	update = strings.TrimSpace(update)
	if update == "" {
		return nil
	}
	m.mu.Lock()
	m.summaries[userID] = update
	m.mu.Unlock()
	return nil
}
