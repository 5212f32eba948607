package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// RedisStore keeps sessions in Redis with an idle TTL refreshed on every save.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a Redis backed store. Keys are "<prefix>wizard:session:<user id>".
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(userID int64) string {
	return fmt.Sprintf("%swizard:session:%d", r.prefix, userID)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode wizard session: %w", err)
	}
	if s.Answers == nil {
		s.Answers = map[int]domain.StepAnswer{}
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now()
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(session.UserID), payload, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}
