package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisTokens stores auth:token:<token> -> username with a TTL.
type RedisTokens struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTokens(rdb *redis.Client, ttl time.Duration) *RedisTokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisTokens{rdb: rdb, ttl: ttl}
}

func (r *RedisTokens) ResolveUser(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	user, err := r.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	if strings.TrimSpace(user) == "" {
		return "", ErrUnauthorized
	}
	return user, nil
}

// Issue creates a fresh token for username.
func (r *RedisTokens) Issue(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("username required")
	}
	for i := 0; i < 3; i++ {
		tok := uuid.NewString()
		ok, err := r.rdb.SetNX(ctx, tokenKey(tok), username, r.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return tok, nil
		}
	}
	return "", fmt.Errorf("issue token: collision")
}

func (r *RedisTokens) Revoke(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, tokenKey(token)).Err()
}

func tokenKey(tok string) string { return "auth:token:" + strings.TrimSpace(tok) }
