package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the transcript cache with a Redis server, for
// deployments where several instances share one cache. Entries are JSON
// envelopes (payload base64-encoded by encoding/json), so the raw bytes
// round-trip exactly.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to redisURL and verifies the server is
// reachable. ttl <= 0 stores entries without expiry.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: redis unreachable: %w", err)
	}
	slog.Info("cache: redis store ready", slog.String("addr", opts.Addr))
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (RawTranscript, bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return RawTranscript{}, false, nil
	}
	if err != nil {
		return RawTranscript{}, false, &CacheIOError{Op: "get", Key: key, Err: err}
	}
	var raw RawTranscript
	if json.Unmarshal(data, &raw) != nil || len(raw.Payload) == 0 {
		// Corrupt entry: fail-open as a miss.
		return RawTranscript{}, false, nil
	}
	return raw, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, raw RawTranscript) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return &CacheIOError{Op: "put", Key: key, Err: err}
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return &CacheIOError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return &CacheIOError{Op: "invalidate", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	return s.deleteMatching(ctx, globEscaper.Replace(prefix)+"*")
}

func (s *RedisStore) InvalidateAll(ctx context.Context) error {
	return s.deleteMatching(ctx, "tx:*")
}

// SCAN MATCH patterns are globs; literal prefix characters need escaping.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func (s *RedisStore) deleteMatching(ctx context.Context, pattern string) error {
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return &CacheIOError{Op: "invalidate", Key: iter.Val(), Err: err}
		}
	}
	if err := iter.Err(); err != nil {
		return &CacheIOError{Op: "invalidate", Key: pattern, Err: err}
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error { return s.rdb.Close() }
