package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

const keyPrefix = "notifications:inflight:"

// RedisGuard is a Guard backed by Redis SETNX with owner tokens.
type RedisGuard struct {
	client *redis.Client
	mu     sync.Mutex
	held   map[string]string
}

// NewRedisGuard constructs a Redis-backed in-flight guard.
func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{
		client: client,
		held:   make(map[string]string),
	}
}

// TryAcquire marks the event in flight with a TTL-bounded owner token.
func (g *RedisGuard) TryAcquire(ctx context.Context, channel string, eventID string, ttl time.Duration) (bool, error) {
	key := guardKey(channel, eventID)

	token, err := randomToken(16)
	if err != nil {
		return false, err
	}

	ok, err := g.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	g.mu.Lock()
	g.held[key] = token
	g.mu.Unlock()
	return true, nil
}

// Release clears the in-flight mark if this process owns the token.
func (g *RedisGuard) Release(ctx context.Context, channel string, eventID string) error {
	key := guardKey(channel, eventID)

	g.mu.Lock()
	token, ok := g.held[key]
	if ok {
		delete(g.held, key)
	}
	g.mu.Unlock()

	if !ok {
		return nil
	}

	return g.client.Eval(ctx, releaseScript, []string{key}, token).Err()
}

func guardKey(channel, eventID string) string {
	return keyPrefix + channel + ":" + eventID
}

// randomToken creates a hex token marking guard ownership.
func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
