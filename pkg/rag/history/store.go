package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"study-assistant-be/pkg/llm"
)

const defaultKeyPrefix = "chat:"

// RedisStore persists conversation transcripts as Redis lists, one list per
// session keyed "chat:<sessionID>". Turns are append-only; eviction belongs
// to the store via TTL, never to the pipeline.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
	}
}

type storedTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Load returns the full ordered transcript for a session. An unknown
// session id yields an empty transcript, not an error.
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load transcript %s: %w", sessionID, err)
	}

	messages := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var turn storedTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode transcript turn: %w", err)
		}
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages, nil
}

// Append pushes one turn onto the end of the session transcript and
// refreshes the session TTL.
func (s *RedisStore) Append(ctx context.Context, sessionID string, msg llm.Message) error {
	payload, err := json.Marshal(storedTurn{Role: msg.Role, Content: msg.Content})
	if err != nil {
		return fmt.Errorf("encode transcript turn: %w", err)
	}

	key := s.key(sessionID)
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("append transcript %s: %w", sessionID, err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("refresh transcript ttl %s: %w", sessionID, err)
		}
	}
	return nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}
