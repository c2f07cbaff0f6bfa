package captcha

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "gatehouse:captcha:session:"
	tokenPrefix   = "gatehouse:captcha:token:"
)

// RedisStore shares sessions and tokens between instances. Keys carry a
// Redis TTL; the stored value also records the expiry so that verification
// compares against the caller's clock like MemoryStore does.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) PutSession(ctx context.Context, id string, e Entry, ttl time.Duration) error {
	return s.put(ctx, sessionPrefix+id, e, ttl)
}

func (s *RedisStore) TakeSession(ctx context.Context, id string) (Entry, bool, error) {
	return s.take(ctx, sessionPrefix+id)
}

func (s *RedisStore) PutToken(ctx context.Context, token string, e Entry, ttl time.Duration) error {
	return s.put(ctx, tokenPrefix+token, e, ttl)
}

func (s *RedisStore) TakeToken(ctx context.Context, token string) (Entry, bool, error) {
	return s.take(ctx, tokenPrefix+token)
}

// Purge is a no-op: Redis evicts expired keys itself.
func (s *RedisStore) Purge(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	for _, prefix := range []string{sessionPrefix, tokenPrefix} {
		var cursor uint64
		for {
			keys, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", 200).Result()
			if err != nil {
				return fmt.Errorf("scan %s: %w", prefix, err)
			}
			if len(keys) > 0 {
				if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("delete %s: %w", prefix, err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	value := strconv.FormatInt(e.ExpiresAt.UnixMilli(), 10) + "|" + e.Answer
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) take(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	msStr, answer, ok := strings.Cut(raw, "|")
	if !ok {
		return Entry{}, false, fmt.Errorf("malformed captcha entry at %s", key)
	}
	ms, err := strconv.ParseInt(msStr, 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("malformed captcha expiry at %s: %w", key, err)
	}
	return Entry{Answer: answer, ExpiresAt: time.UnixMilli(ms)}, true, nil
}
