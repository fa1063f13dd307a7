package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore persists sessions in Redis with a TTL, so idle conversations
// expire on their own and instances can share state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("orassistant.internal.session"),
	}
}

func sessionKey(sender string) string {
	return fmt.Sprintf("session:%s", sender)
}

// Get returns the sender's session, or (nil, nil) when none is stored.
func (s *RedisStore) Get(ctx context.Context, sender string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	data, err := s.client.Get(ctx, sessionKey(sender)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: load: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return &sess, nil
}

// Put stores the session under the TTL, rejecting invalid payloads.
func (s *RedisStore) Put(ctx context.Context, sender string, sess *Session) error {
	ctx, span := s.tracer.Start(ctx, "session.put")
	defer span.End()

	if err := sess.Validate(); err != nil {
		return err
	}
	copied := *sess
	copied.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(&copied)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sender), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: persist: %w", err)
	}
	return nil
}

// Clear deletes the sender's session.
func (s *RedisStore) Clear(ctx context.Context, sender string) error {
	ctx, span := s.tracer.Start(ctx, "session.clear")
	defer span.End()

	if err := s.client.Del(ctx, sessionKey(sender)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}
