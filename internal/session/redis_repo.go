package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookworm/internal/entity"

	"github.com/redis/go-redis/v9"
)

// RedisRepo stores each session as a JSON value that expires with the session.
type RedisRepo struct {
	redis *redis.Client
}

func NewRedisRepo(redisClient *redis.Client) *RedisRepo {
	return &RedisRepo{redis: redisClient}
}

func (r *RedisRepo) key(id string) string {
	return fmt.Sprintf("web_session:%s", id)
}

func (r *RedisRepo) Get(ctx context.Context, id string) (entity.Session, error) {
	op := "RedisRepo.Get"
	res, err := r.redis.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("op", op), slog.String("err", err.Error()))
		return entity.Session{}, err
	}

	var s entity.Session
	if err := json.Unmarshal([]byte(res), &s); err != nil {
		return entity.Session{}, fmt.Errorf("%s: unmarshal session: %w", op, err)
	}
	if s.Expired(time.Now()) {
		return entity.Session{}, ErrNotFound
	}
	return s, nil
}

func (r *RedisRepo) Save(ctx context.Context, s *entity.Session) error {
	op := "RedisRepo.Save"
	prepare(s)

	ttl := time.Until(s.ExpiresAt)
	if s.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: marshal session: %w", op, err)
	}
	if err := r.redis.Set(ctx, r.key(s.ID), payload, ttl).Err(); err != nil {
		slog.Error("failed on redis.Set", slog.String("op", op), slog.String("err", err.Error()))
		return err
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	return r.redis.Del(ctx, r.key(id)).Err()
}

// DeleteExpired is a no-op: keys carry their own TTL.
func (r *RedisRepo) DeleteExpired(context.Context) error {
	return nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}
