package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

const keyPrefix = "mmi:session:"

// RedisStore keeps snapshots in redis so sessions survive API restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, pass string, db int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: pass,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Save(ctx context.Context, key string, sess model.InterviewSession) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (model.InterviewSession, bool, error) {
	b, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.InterviewSession{}, false, nil
	}
	if err != nil {
		return model.InterviewSession{}, false, fmt.Errorf("redis get: %w", err)
	}

	var sess model.InterviewSession
	if err := json.Unmarshal(b, &sess); err != nil {
		return model.InterviewSession{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return sess, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
