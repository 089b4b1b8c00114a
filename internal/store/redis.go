package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// RedisRepository keeps each record as JSON under chess:game:<id> with a TTL.
type RedisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRepository(rdb *redis.Client, ttl time.Duration) *RedisRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

// Dial parses REDIS_URL, connects and pings.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *RedisRepository) Load(ctx context.Context, gameID string) (*GameRecord, error) {
	raw, err := r.rdb.Get(ctx, gameKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return nil, err
	}
	var rec GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", gameID, err)
	}
	return &rec, nil
}

// Create stores a new record and fails with ErrGameExists if the ID is taken.
func (r *RedisRepository) Create(ctx context.Context, rec *GameRecord) error {
	if rec == nil || strings.TrimSpace(rec.GameID) == "" {
		return fmt.Errorf("game id required")
	}
	rec.Version = 1
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, gameKey(rec.GameID), raw, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameExists, rec.GameID)
	}
	return nil
}

// Save writes rec if the stored version is not newer. The check and the
// write run in one WATCH transaction.
func (r *RedisRepository) Save(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return nil
	}
	key := gameKey(rec.GameID)
	next := rec.Version + 1
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var cur struct {
				Version int64 `json:"version"`
			}
			if jerr := json.Unmarshal(raw, &cur); jerr == nil && cur.Version > rec.Version {
				return fmt.Errorf("%w: %s stored=%d have=%d", ErrStaleRecord, rec.GameID, cur.Version, rec.Version)
			}
		}
		out := *rec
		out.Version = next
		payload, err := json.Marshal(&out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return err
	}
	rec.Version = next
	return nil
}

func gameKey(id string) string { return "chess:game:" + strings.TrimSpace(id) }

func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
