package resettoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "pwreset:"
	redisUsedKeyPrefix = "pwreset-used:"
)

// consumeScript moves the live key aside, keeping its TTL, and reports
// whether it existed. Two concurrent consumers cannot both succeed.
var consumeScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("RENAME", KEYS[1], KEYS[2])
return 1
`)

// releaseScript moves a consumed key back unless it has expired.
var releaseScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
return redis.call("RENAMENX", KEYS[1], KEYS[2])
`)

// RedisStore keeps tokens as expiring Redis keys.
type RedisStore struct {
	rdb goredis.UniversalClient
}

func NewRedisStore(rdb goredis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(rdb), nil
}

// Both keys of a token share the {userID} hash tag so the scripts stay
// within one cluster slot.
func (s *RedisStore) key(userID uuid.UUID, tokenHash string) string {
	return redisKeyPrefix + "{" + userID.String() + "}:" + tokenHash
}

func (s *RedisStore) usedKey(userID uuid.UUID, tokenHash string) string {
	return redisUsedKeyPrefix + "{" + userID.String() + "}:" + tokenHash
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, tokenHash string, ttl time.Duration) error {
	if err := validate(userID, tokenHash); err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("resettoken: ttl must be positive")
	}
	if err := s.rdb.Set(ctx, s.key(userID, tokenHash), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	if err := validate(userID, tokenHash); err != nil {
		return ErrInvalidToken
	}
	keys := []string{s.key(userID, tokenHash), s.usedKey(userID, tokenHash)}
	n, err := consumeScript.Run(ctx, s.rdb, keys).Int()
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	if err := validate(userID, tokenHash); err != nil {
		return ErrInvalidToken
	}
	keys := []string{s.usedKey(userID, tokenHash), s.key(userID, tokenHash)}
	n, err := releaseScript.Run(ctx, s.rdb, keys).Int()
	if err != nil {
		return fmt.Errorf("failed to release reset token: %w", err)
	}
	if n == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *RedisStore) Revoke(ctx context.Context, userID uuid.UUID) error {
	var keys []string
	for _, prefix := range []string{redisKeyPrefix, redisUsedKeyPrefix} {
		pattern := prefix + "{" + userID.String() + "}:*"
		iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan reset tokens: %w", err)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke reset tokens: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
